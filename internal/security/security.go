// Package security 提供 API 密钥的解析、存储和校验
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

var (
	ErrInvalidAPIKey = errors.New("无效的API密钥")
	ErrExpiredAPIKey = errors.New("API密钥已过期或已停用")
)

// 权限范围
const (
	ScopeRead  = "read"  // 查询运行记录和规则目录
	ScopeWrite = "write" // 生成、校验和换班评估
	ScopeAll   = "*"
)

// APIKey API密钥，只保存密钥摘要
type APIKey struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Enabled   bool       `json:"enabled"`
	digest    string
}

// IsValid 检查密钥在 now 时刻是否有效
func (k *APIKey) IsValid(now time.Time) bool {
	if !k.Enabled {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// HasScope 检查密钥是否有某权限
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// KeyStore API密钥存储
type KeyStore struct {
	keys *xsync.Map[string, *APIKey] // digest -> APIKey，登记后不再原地修改
	now  func() time.Time
}

// NewKeyStore 创建密钥存储
func NewKeyStore() *KeyStore {
	return &KeyStore{
		keys: xsync.NewMap[string, *APIKey](),
		now:  time.Now,
	}
}

// Add 登记一个已知密钥
func (s *KeyStore) Add(key, name string, scopes []string, expiresAt *time.Time) (*APIKey, error) {
	if key == "" {
		return nil, errors.New("API密钥不能为空")
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeAll}
	}
	apiKey := &APIKey{
		Name:      name,
		Scopes:    scopes,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
		Enabled:   true,
		digest:    HashKey(key),
	}

	if _, loaded := s.keys.LoadOrStore(apiKey.digest, apiKey); loaded {
		return nil, fmt.Errorf("API密钥 %s 重复", name)
	}
	return apiKey, nil
}

// Generate 生成并登记新密钥，返回明文密钥
func (s *KeyStore) Generate(name string, scopes []string, expiresIn time.Duration) (string, *APIKey, error) {
	raw, err := generateRandomString(32)
	if err != nil {
		return "", nil, err
	}
	key := "rk_" + raw

	var expiresAt *time.Time
	if expiresIn > 0 {
		t := s.now().Add(expiresIn)
		expiresAt = &t
	}
	apiKey, err := s.Add(key, name, scopes, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return key, apiKey, nil
}

// Validate 验证密钥
func (s *KeyStore) Validate(key string) (*APIKey, error) {
	apiKey, exists := s.keys.Load(HashKey(key))
	if !exists {
		return nil, ErrInvalidAPIKey
	}
	if !apiKey.IsValid(s.now()) {
		return nil, ErrExpiredAPIKey
	}
	return apiKey, nil
}

// Revoke 撤销密钥
func (s *KeyStore) Revoke(key string) {
	digest := HashKey(key)
	if apiKey, exists := s.keys.Load(digest); exists {
		revoked := *apiKey
		revoked.Enabled = false
		s.keys.Store(digest, &revoked)
	}
}

// Len 已登记的密钥数量
func (s *KeyStore) Len() int {
	return s.keys.Size()
}

// ParseKeys 从配置字符串创建密钥存储。
// 多个条目以逗号分隔，每条为 name:key[:scope|scope]，只写 key 时拥有全部权限。
func ParseKeys(raw string) (*KeyStore, error) {
	store := NewKeyStore()
	for i, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		name, key := fmt.Sprintf("key-%d", i+1), parts[0]
		var scopes []string
		switch len(parts) {
		case 1:
		case 2:
			name, key = parts[0], parts[1]
		case 3:
			name, key = parts[0], parts[1]
			scopes = strings.Split(parts[2], "|")
		default:
			return nil, fmt.Errorf("无法解析API密钥条目 %d", i+1)
		}
		if _, err := store.Add(strings.TrimSpace(key), strings.TrimSpace(name), scopes, nil); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ExtractAPIKey 从请求中提取API密钥
func ExtractAPIKey(r *http.Request) string {
	// 1. 从 Authorization header
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	// 2. 从 X-API-Key header
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	// 3. 从 query parameter
	if key := r.URL.Query().Get("api_key"); key != "" {
		return key
	}

	return ""
}

// HashKey 密钥摘要
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// generateRandomString 生成随机字符串
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}
