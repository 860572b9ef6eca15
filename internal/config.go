package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/notion"
	"github.com/starford/folio/internal/pagecache"
	"github.com/starford/folio/internal/posts"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/web"
)

// Document sources.
const (
	SourceAPI   = "api"
	SourceFiles = "files"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Notion     NotionConfig      `yaml:"notion"`
	Blog       BlogConfig        `yaml:"blog"`
	Auth       AuthConfig        `yaml:"auth"`
	Revalidate RevalidateConfig  `yaml:"revalidate"`
	Cache      CacheConfig       `yaml:"cache"`
	Code       CodeConfig        `yaml:"code"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Notion, &c.Blog, &c.Auth, &c.Revalidate, &c.Cache, &c.Code} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel       slog.Level `yaml:"log_level"`
	HTTP           HTTPConfig `yaml:"http"`
	BaseURL        string     `yaml:"base_url"`
	TrustedOrigins []string   `yaml:"trusted_origins"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.RequestURL),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotionConfig selects and configures the document source.
type NotionConfig struct {
	Source           string        `yaml:"source"`
	APIKey           string        `yaml:"api_key"`
	DatabaseID       string        `yaml:"database_id"`
	BaseURL          string        `yaml:"base_url"`
	Version          string        `yaml:"version"`
	PageSize         int           `yaml:"page_size"`
	Timeout          time.Duration `yaml:"timeout"`
	RateLimit        float64       `yaml:"rate_limit"`
	MaxRetries       int           `yaml:"max_retries"`
	SnapshotDir      string        `yaml:"snapshot_dir"`
	ParallelChildren int           `yaml:"parallel_children"`
}

// Validate validates the document source configuration.
func (c *NotionConfig) Validate() error {
	api := c.Source == SourceAPI
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(SourceAPI, SourceFiles)),
		validation.Field(&c.APIKey, validation.When(api, validation.Required)),
		validation.Field(&c.DatabaseID, validation.When(api, validation.Required)),
		validation.Field(&c.BaseURL, validation.When(api, validation.Required, is.RequestURL)),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(100)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.SnapshotDir, validation.When(c.Source == SourceFiles, validation.Required)),
		validation.Field(&c.ParallelChildren, validation.Min(0), validation.Max(32)),
	)
}

// BlogConfig holds presentation settings.
type BlogConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	PageSize    int    `yaml:"page_size"`
	IndexPath   string `yaml:"index_path"`
}

// Validate validates the blog configuration.
func (c *BlogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.IndexPath, validation.Required, validation.By(validIndexPath)),
	)
}

func validIndexPath(v any) error {
	p, _ := v.(string)
	if len(p) < 2 || p[0] != '/' || p[len(p)-1] == '/' {
		return errors.New("must start with / and must not end with /")
	}
	return nil
}

// UserConfig is one account allowed to sign in.
type UserConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Image        string `yaml:"image"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

// Validate validates the user entry.
func (c UserConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Role, validation.Required, validation.In(string(auth.RoleAdmin), string(auth.RoleUser))),
		validation.Field(&c.PasswordHash, validation.Required),
	)
}

// AuthConfig holds session settings and the accounts allowed to sign in.
//
// An empty SecretKey makes Run generate one, which signs everyone out on
// restart.
type AuthConfig struct {
	SecretKey       string        `yaml:"secret_key"`
	SessionLifetime time.Duration `yaml:"session_lifetime"`
	CookieName      string        `yaml:"cookie_name"`
	SecureCookie    bool          `yaml:"secure_cookie"`
	Users           []UserConfig  `yaml:"users"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SecretKey, is.Hexadecimal),
		validation.Field(&c.SessionLifetime, validation.Min(time.Minute)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.Users),
	); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if seen[u.Email] {
			return fmt.Errorf("auth: duplicate user email %q", u.Email)
		}
		seen[u.Email] = true
	}
	return nil
}

// Accounts converts the configured users.
func (c *AuthConfig) Accounts() []auth.User {
	users := make([]auth.User, 0, len(c.Users))
	for _, u := range c.Users {
		users = append(users, auth.User{
			Principal: auth.Principal{
				ID:    u.ID,
				Name:  u.Name,
				Email: u.Email,
				Image: u.Image,
				Role:  auth.Role(u.Role),
			},
			PasswordHash: u.PasswordHash,
		})
	}
	return users
}

// RevalidateConfig holds the shared secret of the revalidation endpoint.
type RevalidateConfig struct {
	Secret string `yaml:"secret"`
}

// Validate validates the revalidation configuration.
func (c *RevalidateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Secret, validation.Required, validation.Length(8, 0)),
	)
}

// CacheConfig configures the rendered page cache.
type CacheConfig struct {
	Type       string        `yaml:"type"`
	TTL        time.Duration `yaml:"ttl"`
	SQLitePath string        `yaml:"sqlite_path"`
	RedisURL   string        `yaml:"redis_url"`
	Prefix     string        `yaml:"prefix"`
	Compress   bool          `yaml:"compress"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required,
			validation.In(pagecache.BackendMemory, pagecache.BackendSQLite, pagecache.BackendRedis)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SQLitePath, validation.When(c.Type == pagecache.BackendSQLite, validation.Required)),
		validation.Field(&c.RedisURL, validation.When(c.Type == pagecache.BackendRedis, validation.Required)),
	)
}

// StoreConfig returns the backend settings for pagecache.OpenStore.
func (c *CacheConfig) StoreConfig() pagecache.StoreConfig {
	return pagecache.StoreConfig{
		Type:       c.Type,
		SQLitePath: c.SQLitePath,
		RedisURL:   c.RedisURL,
		Prefix:     c.Prefix,
	}
}

// CodeConfig names the highlight themes.
type CodeConfig struct {
	LightTheme string `yaml:"light_theme"`
	DarkTheme  string `yaml:"dark_theme"`
}

// Validate validates the code configuration.
func (c *CodeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LightTheme, validation.Required),
		validation.Field(&c.DarkTheme, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			BaseURL: "http://localhost:8080",
		},
		Notion: NotionConfig{
			Source:     SourceAPI,
			BaseURL:    notion.DefaultBaseURL,
			Version:    notion.DefaultVersion,
			PageSize:   100,
			Timeout:    10 * time.Second,
			RateLimit:  3,
			MaxRetries: 3,
		},
		Blog: BlogConfig{
			Title:     "Folio",
			PageSize:  posts.DefaultPageSize,
			IndexPath: blogservice.DefaultIndexPath,
		},
		Auth: AuthConfig{
			SessionLifetime: auth.DefaultLifetime,
			CookieName:      web.DefaultCookieName,
		},
		Cache: CacheConfig{
			Type: pagecache.BackendMemory,
			TTL:  pagecache.DefaultTTL,
		},
		Code: CodeConfig{
			LightTheme: render.DefaultLightTheme,
			DarkTheme:  render.DefaultDarkTheme,
		},
	}
}
