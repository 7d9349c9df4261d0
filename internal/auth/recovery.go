package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// recoveryTokenBytes - длина случайной части токена восстановления.
// Энтропии 160 бит достаточно, соль не нужна.
const recoveryTokenBytes = 20

// MintRecoveryToken генерирует одноразовый токен восстановления.
// Плэйнтекст уходит пользователю, в БД сохраняется только дайджест:
// утечка хранилища не дает рабочих токенов.
func MintRecoveryToken() (plaintext, digest string, err error) {
	buf := make([]byte, recoveryTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate recovery token: %w", err)
	}

	plaintext = hex.EncodeToString(buf)
	return plaintext, RecoveryDigest(plaintext), nil
}

// RecoveryDigest - детерминированный дайджест токена.
// Та же функция используется при выпуске и при поиске по входящему
// токену: sha256 быстрый, для высокоэнтропийного секрета этого хватает.
func RecoveryDigest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
