package db

import (
	"context"
	"fmt"

	"github.com/miosrv/mio/internal/model"
)

// OAuthRepository resolves registered client applications.
type OAuthRepository struct {
	db *DB
}

// NewOAuthRepository creates an OAuthRepository over the shared pool.
func NewOAuthRepository(db *DB) *OAuthRepository {
	return &OAuthRepository{db: db}
}

// AppByClientID retrieves an application. Returns nil, nil when absent.
func (r *OAuthRepository) AppByClientID(ctx context.Context, clientID string) (*model.OAuthApp, error) {
	var app model.OAuthApp
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, client_id, client_secret, name, allowed_grant_types
		 FROM oauth_apps WHERE client_id = $1`, clientID,
	).Scan(&app.ID, &app.ClientID, &app.ClientSecret, &app.Name, &app.AllowedGrantTypes)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying oauth app %q: %w", clientID, err)
	}
	return &app, nil
}
