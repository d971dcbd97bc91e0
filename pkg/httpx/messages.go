package httpx

// User facing error messages. They stay generic on purpose so a client never
// learns which check failed beyond "try again".
const (
	MsgBadRequest      = "Nieprawidłowe żądanie"
	MsgTooManyRequests = "Zbyt wiele żądań. Spróbuj ponownie za kilka minut."
	MsgBadOrigin       = "Nieautoryzowane źródło żądania"
	MsgMissingToken    = "Brak tokenu bezpieczeństwa. Odśwież stronę i spróbuj ponownie."
	MsgInvalidToken    = "Nieprawidłowy token bezpieczeństwa. Odśwież stronę i spróbuj ponownie."
	MsgSecurityError   = "Błąd weryfikacji bezpieczeństwa"
	MsgForbidden       = "Dostęp zabroniony"
	MsgUnauthorized    = "Wymagane uwierzytelnienie"
	MsgUnexpected      = "Wystąpił nieoczekiwany błąd. Spróbuj ponownie za chwilę."
	MsgNotFound        = "Nie znaleziono zasobu"
	MsgPayloadTooLarge = "Żądanie jest zbyt duże"
	MsgContentType     = "Nieprawidłowy typ zawartości. Wymagany application/json."
)
