package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"ceseminars/internal/logger"

	"github.com/redis/rueidis"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addr         string
	Password     string
	UsersHashKey string
	CreditTTL    time.Duration
}

// ValkeyClient caches credit totals and the basic-auth lookup table.
// Every cached value is derived; misses and failures fall through to the
// database.
type ValkeyClient struct {
	client       rueidis.Client
	usersHashKey string
	creditTTL    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	usersHashKey := cfg.UsersHashKey
	if usersHashKey == "" {
		usersHashKey = "users:auth"
	}
	creditTTL := cfg.CreditTTL
	if creditTTL <= 0 {
		creditTTL = time.Hour
	}

	return &ValkeyClient{
		client:       client,
		usersHashKey: usersHashKey,
		creditTTL:    creditTTL,
	}, nil
}

// AuthKey is the hash field holding the user id for an email and
// SHA-256 password hash pair.
func AuthKey(email, passwordHash string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + passwordHash))
}

func creditKey(userID int64) string {
	return "credits:total:" + strconv.FormatInt(userID, 10)
}

func (v *ValkeyClient) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	cmd := v.client.B().Hget().Key(v.usersHashKey).Field(AuthKey(email, passwordHash)).Build()
	userIDStr, err := v.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, fmt.Errorf("user not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// StoreUserAuth fills the auth table after a successful database lookup.
func (v *ValkeyClient) StoreUserAuth(ctx context.Context, email, passwordHash string, userID int64) error {
	cmd := v.client.B().Hset().Key(v.usersHashKey).FieldValue().
		FieldValue(AuthKey(email, passwordHash), strconv.FormatInt(userID, 10)).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store user auth: %w", err)
	}
	return nil
}

func (v *ValkeyClient) GetCreditTotal(ctx context.Context, userID int64) (decimal.Decimal, bool) {
	raw, err := v.client.Do(ctx, v.client.B().Get().Key(creditKey(userID)).Build()).ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			logger.WithContext(ctx).Warn("Credit cache read failed", "error", err, "user_id", userID)
		}
		return decimal.Zero, false
	}

	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return total, true
}

func (v *ValkeyClient) SetCreditTotal(ctx context.Context, userID int64, total decimal.Decimal) {
	cmd := v.client.B().Set().Key(creditKey(userID)).Value(total.String()).
		ExSeconds(int64(v.creditTTL / time.Second)).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		logger.WithContext(ctx).Warn("Credit cache write failed", "error", err, "user_id", userID)
	}
}

func (v *ValkeyClient) InvalidateCredits(ctx context.Context, userID int64) {
	if err := v.client.Do(ctx, v.client.B().Del().Key(creditKey(userID)).Build()).Error(); err != nil {
		logger.WithContext(ctx).Warn("Credit cache invalidation failed", "error", err, "user_id", userID)
	}
}

func (v *ValkeyClient) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *ValkeyClient) Close() error {
	v.client.Close()
	return nil
}
