package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EmailRoutingKey ключ маршрутизации готовых писем.
const EmailRoutingKey = "email"

// GetNotificationQueues возвращает очереди, которые читает внешний почтовый воркер.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.email", RoutingKey: EmailRoutingKey},
	}
}
