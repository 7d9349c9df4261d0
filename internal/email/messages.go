package email

import "fmt"

// PasswordResetSubject - тема письма восстановления пароля
const PasswordResetSubject = "TStore - Password reset email"

// PasswordResetBody собирает текст письма восстановления.
// В письме уходит плэйнтекст токена внутри URL - единственное место,
// где он существует вне памяти процесса.
func PasswordResetBody(resetURL string) string {
	return fmt.Sprintf("Copy paste this link in your URL and hit enter\n\n%s\n\nThe link is valid for 20 minutes. If you did not request a password reset, ignore this email.", resetURL)
}
