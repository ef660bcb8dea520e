package services

import (
	"context"
	"errors"
	"time"

	"github.com/jpvillegas/taskmesh/internal/identityclient"
	"github.com/jpvillegas/taskmesh/internal/models"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrIdentityNotFound = errors.New("identity not found")

	ErrInvalidDueDate   = errors.New("due date must be a valid date not earlier than today")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrNoPreviousStatus = errors.New("no previous status recorded")

	ErrInvalidCredentials = errors.New("identity not found or incorrect credentials")

	ErrNameRequired = errors.New("name is required and must be at most 100 characters")
	ErrInvalidEmail = errors.New("invalid email")
	ErrEmailTaken   = errors.New("email already registered")
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	ErrInvalidRole  = errors.New("a valid role must be provided")
)

type TaskService interface {
	// CreateTask validates the due date (parseable, not before today)
	// and stores a fresh TODO task with no previous status.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// UpdateTask applies only the supplied fields. It re-validates the
	// due date when one is supplied and never touches the status pair.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// SetTaskStatus records the current status as the previous one and
	// applies the new status. Any status may move to any other status;
	// the open transition table is deliberate.
	SetTaskStatus(ctx context.Context, id, status string) (*models.Task, error)

	// RevertTaskStatus swaps status and previous status. It returns
	// ErrNoPreviousStatus if no explicit status change happened yet.
	RevertTaskStatus(ctx context.Context, id string) (*models.Task, error)

	// AssignTask resolves the identity through the identity service
	// (with the caller's propagated token) before assigning; a nil
	// identity id clears the assignment without any resolution.
	AssignTask(ctx context.Context, params AssignTaskParams) (*AssignTaskResult, error)

	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)

	// ListTasks and ListTasksByAssignee enrich each assigned task with
	// its identity on a best-effort basis; they succeed even when the
	// identity service is degraded.
	ListTasks(ctx context.Context, token string) ([]identityclient.EnrichedTask, error)
	ListTasksByAssignee(ctx context.Context, identityID, token string) ([]identityclient.EnrichedTask, error)
}

type AuthService interface {
	// Login validates the credential pair against the identity service
	// and mints a signed access token on success. Transport failures
	// are retried up to two extra times; rejections are not.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
}

type IdentityService interface {
	Register(ctx context.Context, params RegisterParams) (*models.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*models.Identity, error)

	// ValidateCredentials implements the by-email contract consumed by
	// the auth service. It returns ErrInvalidCredentials for both an
	// unknown email and a wrong password.
	ValidateCredentials(ctx context.Context, email, password string) (*models.Identity, error)

	UpdateIdentity(ctx context.Context, params UpdateIdentityParams) (*models.Identity, error)
	UpdateIdentityRole(ctx context.Context, id, role string) (*models.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ListIdentities(ctx context.Context, page, limit int) (*IdentityPage, error)
}

// IdentityResolver is the task service's view of the cross-service
// resolver.
type IdentityResolver interface {
	ResolveOne(ctx context.Context, identityID, token string) (*identityclient.PublicIdentity, error)
	Enrich(ctx context.Context, tasks []*models.Task, token string) []identityclient.EnrichedTask
}

// CredentialValidator is the auth service's view of the identity
// service client.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, email, password string) (*identityclient.PublicIdentity, error)
}

type CreateTaskParams struct {
	Title        string
	Description  string
	DueDate      string
	AssignedToID string
}

type UpdateTaskParams struct {
	ID           string
	Title        *string
	Description  *string
	DueDate      *string
	AssignedToID *string
}

type AssignTaskParams struct {
	TaskID string
	// IdentityID is nil to unassign.
	IdentityID *string
	// Token is the caller's bearer token, propagated to the identity
	// service on resolution.
	Token string
}

type AssignTaskResult struct {
	Message      string
	TaskID       string
	IdentityID   string
	IdentityName string
}

type LoginParams struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

type UpdateIdentityParams struct {
	ID       string
	Name     *string
	Email    *string
	Password *string
}

type IdentityPage struct {
	Identities []*models.Identity
	Total      int
	Page       int
	Limit      int
	TotalPages int
}
