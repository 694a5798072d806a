package wiring

import (
	"context"
	"net/http"

	"keeper/internal/contracts"
	"keeper/internal/domain"
	"keeper/internal/features/audit"
	"keeper/internal/features/checklists"
	"keeper/internal/features/deletions"
	"keeper/internal/features/maintenance"
	"keeper/internal/features/users"
	keeperserver "keeper/internal/platform/server"
)

// Deps builds feature services from the server's shared dependencies.
type Deps struct {
	srv   *keeperserver.Server
	repos contracts.Repos
}

func NewDeps(srv *keeperserver.Server) Deps {
	return Deps{srv: srv, repos: srv.Repos()}
}

// GetUserByEmail returns the user by delegating to configured repositories.
func (d Deps) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return d.repos.Users.GetUserByEmail(ctx, email)
}

// StartSession starts a server-side session for user.
func (d Deps) StartSession(w http.ResponseWriter, r *http.Request, user domain.User) error {
	return d.srv.StartSession(w, r, user)
}

// EndSession ends the caller's session.
func (d Deps) EndSession(w http.ResponseWriter, r *http.Request) error {
	return d.srv.EndSession(w, r)
}

// ResolveCurrentIdentity returns the authenticated identity from the request.
func (d Deps) ResolveCurrentIdentity(r *http.Request) (*domain.Identity, error) {
	return d.srv.ResolveCurrentIdentity(r)
}

func (d Deps) Registry() *deletions.Registry {
	return deletions.NewRegistry(d.repos, d.srv.Logger(), d.srv.Metrics())
}

func (d Deps) Audit() *audit.Service {
	opts := []audit.Option{
		audit.WithLogger(d.srv.Logger()),
		audit.WithMetrics(d.srv.Metrics()),
		audit.WithDefaultLimit(d.srv.Config().AuditDefaultLimit),
	}
	if sink := d.srv.ForensicSink(); sink != nil {
		opts = append(opts, audit.WithSink(sink))
	}
	return audit.NewService(d.repos, opts...)
}

func (d Deps) Reconciler() *maintenance.Reconciler {
	return maintenance.NewReconciler(d.repos, d.srv.Logger(), d.srv.Metrics())
}

func (d Deps) Checklists() *checklists.Service {
	return checklists.NewService(d.repos, d.srv.Logger())
}

func (d Deps) Users() *users.Service {
	return users.NewService(d.repos, d.srv.Logger())
}
