package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type CronConfig struct {
	// Heartbeat check, every minute
	ScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Mailbox polling, every two minutes
	ScheduleFetchMailboxes string `env:"CRON_SCHEDULE_FETCH_MAILBOXES" envDefault:"0 */2 * * * *"`
}
