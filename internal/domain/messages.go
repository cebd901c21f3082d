package domain

import "fmt"

func RecipientRequestMessage(quantity int) string {
	return fmt.Sprintf("Пожалуйста, отправьте Telegram username в формате @username для получения %d звёзд.", quantity)
}

func RecipientFormatErrorMessage() string {
	return "Неверный формат. Пожалуйста, отправьте Telegram username в формате @username."
}

func PurchaseFailedMessage() string {
	return "Не удалось отправить звёзды. Проверьте username и отправьте его ещё раз в формате @username."
}

func CompletionMessage(quantity int, identifier, transactionHash string) string {
	return fmt.Sprintf("⭐ Заказ выполнен: %d звёзд отправлены на @%s. Hash: %s", quantity, identifier, transactionHash)
}
