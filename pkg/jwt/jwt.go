package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"regulations/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 自定义 JWT 声明：用户与其工作流角色
type Claims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
// 生产环境 Token 由外部认证系统签发，GenerateAccessToken 供联调与测试使用
type Manager struct {
	secret         []byte
	issuer         string
	accessTokenTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		issuer:         cfg.Issuer,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(userID, name string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Roles:  roles,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.accessTokenTTL)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token（签名算法、有效期、签发方）
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
