package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opendesk/mailroom/internal/repository"
	"github.com/opendesk/mailroom/services/ingestion"
	"github.com/opendesk/mailroom/services/mailclient"
)

// MailboxHandler exposes the mailbox probing and ingestion operations.
type MailboxHandler struct {
	repos        *repository.Repositories
	orchestrator *ingestion.Orchestrator
}

func NewMailboxHandler(repos *repository.Repositories, orchestrator *ingestion.Orchestrator) *MailboxHandler {
	return &MailboxHandler{
		repos:        repos,
		orchestrator: orchestrator,
	}
}

// List returns all configured mailboxes.
func (h *MailboxHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	mailboxes, err := h.repos.MailboxRepository.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mailboxes": mailboxes})
}

// Test probes the mailbox's incoming server. Failures surface in the result
// body, not as HTTP errors.
func (h *MailboxHandler) Test(c *gin.Context) {
	ctx := c.Request.Context()

	mailbox, err := h.repos.MailboxRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, mailclient.TestConnection(ctx, mailbox))
}

// Folders enumerates the folders visible on the remote server.
func (h *MailboxHandler) Folders(c *gin.Context) {
	ctx := c.Request.Context()

	mailbox, err := h.repos.MailboxRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, mailclient.ListFolders(ctx, mailbox))
}

// Fetch runs one ingestion pass for the mailbox and returns its statistics.
func (h *MailboxHandler) Fetch(c *gin.Context) {
	ctx := c.Request.Context()

	mailbox, err := h.repos.MailboxRepository.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.orchestrator.Fetch(ctx, mailbox))
}
