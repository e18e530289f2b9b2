package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	challengePrefix = "otp_registration_"
	cooldownPrefix  = "otp_resend_"
)

const (
	fieldEmail        = "email"
	fieldName         = "name"
	fieldPasswordHash = "password_hash"
	fieldCode         = "code"
	fieldAttempts     = "attempts"
)

// Script replies: the first element is one of these statuses.
const (
	statusMissing   = 0
	statusExhausted = 1
	statusMismatch  = 2
	statusOK        = 3
	statusCooldown  = 4
)

// reissueScript replaces the code of a live challenge unless the resend
// cooldown is set, then sets the cooldown.
// KEYS: challenge, cooldown. ARGV: code, challenge ttl ms, cooldown ms.
var reissueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0}
end
if not redis.call('SET', KEYS[2], '1', 'NX', 'PX', ARGV[3]) then
  return {4}
end
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'attempts', 0)
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {3, redis.call('HGET', KEYS[1], 'name')}
`)

// verifyScript checks a code and counts the failure in one step. The failure
// that reaches the limit deletes the challenge.
// KEYS: challenge. ARGV: code, max attempts, challenge ttl ms.
var verifyScript = redis.NewScript(`
local data = redis.call('HGETALL', KEYS[1])
if #data == 0 then
  return {0}
end
local fields = {}
for i = 1, #data, 2 do
  fields[data[i]] = data[i + 1]
end
local max = tonumber(ARGV[2])
local attempts = tonumber(fields['attempts'] or '0')
if attempts >= max then
  redis.call('DEL', KEYS[1])
  return {1}
end
if fields['code'] ~= ARGV[1] then
  attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  if attempts >= max then
    redis.call('DEL', KEYS[1])
    return {1}
  end
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  return {2, max - attempts}
end
return {3, fields['name'] or '', fields['password_hash'] or ''}
`)

// OTPStore keeps pending registrations in Redis hashes that expire on their
// own. Resend and verify run as Lua scripts, so concurrent requests for one
// email cannot both pass the cooldown or attempt checks.
type OTPStore struct {
	client      redis.UniversalClient
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
}

func NewOTPStore(client redis.UniversalClient, ttl, cooldown time.Duration, maxAttempts int) *OTPStore {
	return &OTPStore{client: client, ttl: ttl, cooldown: cooldown, maxAttempts: maxAttempts}
}

// Put starts a challenge, replacing any previous one for the email.
func (s *OTPStore) Put(ctx context.Context, ch domain.OtpChallenge) error {
	key := challengeKey(ch.Email)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldEmail, ch.Email,
			fieldName, ch.Name,
			fieldPasswordHash, ch.PasswordHash,
			fieldCode, ch.Code,
			fieldAttempts, 0,
		)
		p.PExpire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Get returns the live challenge for email, or nil when there is none.
func (s *OTPStore) Get(ctx context.Context, email string) (*domain.OtpChallenge, error) {
	fields, err := s.client.HGetAll(ctx, challengeKey(email)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	attempts, _ := strconv.Atoi(fields[fieldAttempts])
	return &domain.OtpChallenge{
		Email:        fields[fieldEmail],
		Name:         fields[fieldName],
		PasswordHash: fields[fieldPasswordHash],
		Code:         fields[fieldCode],
		Attempts:     attempts,
	}, nil
}

// Reissue swaps in code, resets attempts and the TTL and starts the resend
// cooldown.
func (s *OTPStore) Reissue(ctx context.Context, email, code string) (*domain.OtpChallenge, error) {
	res, err := reissueScript.Run(ctx, s.client,
		[]string{challengeKey(email), cooldownKey(email)},
		code, s.ttl.Milliseconds(), s.cooldown.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("reissue otp: %w", err)
	}

	switch status(res) {
	case statusMissing:
		return nil, apperrors.NoActiveChallenge()
	case statusCooldown:
		return nil, apperrors.CooldownActive()
	case statusOK:
		return &domain.OtpChallenge{Email: email, Name: str(res, 1), Code: code}, nil
	default:
		return nil, fmt.Errorf("reissue otp: unexpected reply %v", res)
	}
}

// Verify checks code against the live challenge. A match returns the
// challenge and leaves it in place; Clear removes it once the account exists.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (*domain.OtpChallenge, error) {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{challengeKey(email)},
		code, s.maxAttempts, s.ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	switch status(res) {
	case statusMissing:
		return nil, apperrors.NoActiveChallenge()
	case statusExhausted:
		return nil, apperrors.AttemptsExhausted()
	case statusMismatch:
		remaining, _ := res[1].(int64)
		return nil, apperrors.InvalidCode(int(remaining))
	case statusOK:
		return &domain.OtpChallenge{Email: email, Name: str(res, 1), PasswordHash: str(res, 2), Code: code}, nil
	default:
		return nil, fmt.Errorf("verify otp: unexpected reply %v", res)
	}
}

// Clear removes the challenge and its resend cooldown.
func (s *OTPStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, challengeKey(email), cooldownKey(email)).Err()
}

func status(res []any) int64 {
	if len(res) == 0 {
		return -1
	}
	n, ok := res[0].(int64)
	if !ok {
		return -1
	}
	return n
}

func str(res []any, i int) string {
	if i >= len(res) {
		return ""
	}
	s, _ := res[i].(string)
	return s
}

func challengeKey(email string) string {
	return challengePrefix + email
}

func cooldownKey(email string) string {
	return cooldownPrefix + email
}
