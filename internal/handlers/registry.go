package handlers

// AppHandlers собирает все HTTP-хендлеры приложения
type AppHandlers struct {
	Auth *AuthHandler
	User *UserHandler
}
