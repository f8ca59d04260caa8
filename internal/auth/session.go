package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mailnotes/server/internal/model"
	"github.com/mailnotes/server/internal/repo"
)

// Reasons a credential resolved to anonymous.
const (
	ReasonNoCredential = "no_credential"
	ReasonMalformed    = "malformed_credential"
	ReasonUnknownUser  = "unknown_user"
	ReasonLookupFailed = "lookup_failed"
	ReasonTagMismatch  = "tag_mismatch"
)

// Identity is an authenticated user.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Resolution is the outcome of reading a session credential: either a
// resolved Identity or anonymous with the reason.
type Resolution struct {
	identity Identity
	resolved bool
	Reason   string
}

func Resolved(id Identity) Resolution {
	return Resolution{identity: id, resolved: true}
}

func Anonymous(reason string) Resolution {
	return Resolution{Reason: reason}
}

// Identity returns the resolved identity and true, or false for anonymous.
func (r Resolution) Identity() (Identity, bool) {
	return r.identity, r.resolved
}

func (r Resolution) IsAnonymous() bool {
	return !r.resolved
}

// UserLookup fetches the current state of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// credential is the cookie payload before base64.
type credential struct {
	ID string `json:"id"`
	H  string `json:"h"`
}

// SessionCodec builds and checks stateless session credentials. The
// credential is readable by the client but cannot be forged without the
// secret; rotating the secret invalidates every outstanding credential.
type SessionCodec struct {
	secret string
}

// NewSessionCodec creates a codec bound to secret
func NewSessionCodec(secret string) (*SessionCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &SessionCodec{secret: secret}, nil
}

// Tag binds the user id and current email to the server secret.
func (c *SessionCodec) Tag(userID uuid.UUID, email string) string {
	return Digest(email + ":" + userID.String() + ":" + c.secret)
}

// Encode returns base64(JSON{id, h}).
func (c *SessionCodec) Encode(userID uuid.UUID, email string) string {
	payload, _ := json.Marshal(credential{ID: userID.String(), H: c.Tag(userID, email)})
	return base64.StdEncoding.EncodeToString(payload)
}

// Decode resolves raw against the current user state. It never fails: any
// defect in the credential yields an anonymous Resolution.
func (c *SessionCodec) Decode(ctx context.Context, raw string, users UserLookup) Resolution {
	if raw == "" {
		return Anonymous(ReasonNoCredential)
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Anonymous(ReasonMalformed)
	}
	var cred credential
	if err := json.Unmarshal(decoded, &cred); err != nil || cred.ID == "" || cred.H == "" {
		return Anonymous(ReasonMalformed)
	}
	userID, err := uuid.Parse(cred.ID)
	if err != nil {
		return Anonymous(ReasonMalformed)
	}

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Anonymous(ReasonUnknownUser)
		}
		return Anonymous(ReasonLookupFailed)
	}

	if !constantTimeCompare(cred.H, c.Tag(user.ID, user.Email)) {
		return Anonymous(ReasonTagMismatch)
	}
	return Resolved(Identity{ID: user.ID, Email: user.Email})
}
