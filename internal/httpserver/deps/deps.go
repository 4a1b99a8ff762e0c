package deps

import (
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/auth"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS    []string         // IPs allowed to access healthz/readyz endpoints
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Store           store.Store      // bookmark storage collaborator
	Auth            *auth.Service    // identity collaborator
	RefreshInterval time.Duration    // live view polling period
	SecureCookies   bool             // set the Secure flag on session and state cookies
	MutationBurst   int              // per-user burst of add/delete/import requests
	MutationPerMin  int              // per-user refill rate of add/delete/import requests
	RequestTimeout  time.Duration    // deadline for JSON endpoints (not the live stream)
}
