package usecases

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"paysync.backend/internal/domain/entities"
	domainerrors "paysync.backend/internal/domain/errors"
	"paysync.backend/internal/domain/repositories"
	"paysync.backend/pkg/jwt"
	"paysync.backend/pkg/redis"
)

// signatureFreshnessWindow bounds how old an operator request's
// timestamp may be before its HMAC signature is rejected outright,
// independent of whether the signature itself is valid.
const signatureFreshnessWindow = 5 * time.Minute

var operatorRandReader io.Reader = rand.Reader

// OperatorUsecase gates the operator console behind an API-key-plus-
// HMAC exchange for a short-lived, Redis-backed session — the same
// shape as the teacher's ApiKeyUsecase, collapsed to one audience
// (there's no User/role model here, just "is this the operator").
type OperatorUsecase struct {
	keyRepo       repositories.OperatorKeyRepository
	jwtService    *jwt.JWTService
	sessionStore  *redis.SessionStore
	sessionTTL    time.Duration
	encryptionKey []byte
}

func NewOperatorUsecase(
	keyRepo repositories.OperatorKeyRepository,
	jwtService *jwt.JWTService,
	sessionStore *redis.SessionStore,
	sessionTTL time.Duration,
	encryptionKeyHex string,
) (*OperatorUsecase, error) {
	key, err := hex.DecodeString(encryptionKeyHex)
	if err != nil || len(key) != 32 {
		return nil, errors.New("operator key encryption key must be 32 bytes hex-encoded")
	}
	return &OperatorUsecase{
		keyRepo:       keyRepo,
		jwtService:    jwtService,
		sessionStore:  sessionStore,
		sessionTTL:    sessionTTL,
		encryptionKey: key,
	}, nil
}

// Authenticate verifies an operator API key and its HMAC request
// signature, then mints a Redis-backed session and returns the opaque
// session id the console sends back as X-Session-Id on later calls.
func (u *OperatorUsecase) Authenticate(ctx context.Context, apiKey, signature, timestamp, method, path, bodyHash string) (string, error) {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", domainerrors.Unauthorized("invalid timestamp")
	}
	if math.Abs(float64(time.Now().Unix()-ts)) > signatureFreshnessWindow.Seconds() {
		return "", domainerrors.Unauthorized("request timestamp expired")
	}

	key, err := u.keyRepo.FindByKeyHash(ctx, sha256Hex([]byte(apiKey)))
	if err != nil {
		return "", domainerrors.Unauthorized("invalid api key")
	}
	if !key.IsActive {
		return "", domainerrors.Unauthorized("api key inactive")
	}

	secret, err := u.decrypt(key.SecretEncrypted)
	if err != nil {
		return "", domainerrors.Internal(fmt.Errorf("decrypt operator key secret: %w", err))
	}

	stringToSign := timestamp + method + path + bodyHash
	expected := hmacSha256Hex(secret, stringToSign)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", domainerrors.Unauthorized("invalid signature")
	}

	token, err := u.jwtService.GenerateSessionToken(key.ID)
	if err != nil {
		return "", domainerrors.Internal(fmt.Errorf("mint session token: %w", err))
	}

	sessionID := uuid.New().String()
	if err := u.sessionStore.CreateSession(ctx, sessionID, &redis.SessionData{AccessToken: token}, u.sessionTTL); err != nil {
		return "", domainerrors.Internal(fmt.Errorf("persist operator session: %w", err))
	}

	_ = u.keyRepo.TouchLastUsed(ctx, key.ID)
	return sessionID, nil
}

// ValidateSession resolves a session id to the operator key id it was
// minted for, or an Unauthorized AppError (HTTP 401) if the session
// is missing, expired, or its token no longer validates.
func (u *OperatorUsecase) ValidateSession(ctx context.Context, sessionID string) (string, error) {
	data, err := u.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return "", domainerrors.Unauthorized("session not found")
	}

	claims, err := u.jwtService.ValidateToken(data.AccessToken)
	if err != nil {
		return "", domainerrors.Unauthorized("session expired")
	}

	return claims.APIKeyID, nil
}

// CreateOperatorKey mints a fresh operator API key and secret and
// returns both in plaintext. Only the key's SHA-256 hash and an
// AES-GCM encrypted copy of the secret are stored, and no method
// returns the plaintext again. Used by the operator key provisioning
// tool, not exposed over HTTP.
func (u *OperatorUsecase) CreateOperatorKey(ctx context.Context, label string) (apiKey, secret string, err error) {
	apiKeyRaw, err := randomHex(32)
	if err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	secretRaw, err := randomHex(32)
	if err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}

	encrypted, err := u.encrypt(secretRaw)
	if err != nil {
		return "", "", fmt.Errorf("encrypt secret: %w", err)
	}

	key := &entities.OperatorKey{
		ID:              uuid.New().String(),
		Label:           label,
		KeyHash:         sha256Hex([]byte(apiKeyRaw)),
		SecretEncrypted: encrypted,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}

	if err := u.keyRepo.Create(ctx, key); err != nil {
		return "", "", err
	}

	return apiKeyRaw, secretRaw, nil
}

func (u *OperatorUsecase) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(u.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(operatorRandReader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

func (u *OperatorUsecase) decrypt(ciphertextHex string) (string, error) {
	data, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(u.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSha256Hex(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n/2)
	if _, err := operatorRandReader.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
