package enum

type MailProtocol string

const (
	ProtocolIMAP MailProtocol = "imap"
	ProtocolPOP3 MailProtocol = "pop3"
)

func (t MailProtocol) String() string {
	return string(t)
}

type MailEncryption string

const (
	EncryptionNone MailEncryption = "none"
	EncryptionSSL  MailEncryption = "ssl"
	EncryptionTLS  MailEncryption = "tls"
)

func (t MailEncryption) String() string {
	return string(t)
}

type ConnectionStatus string

const (
	ConnectionActive    ConnectionStatus = "active"
	ConnectionNotActive ConnectionStatus = "not_active"
)

func (t ConnectionStatus) String() string {
	return string(t)
}
