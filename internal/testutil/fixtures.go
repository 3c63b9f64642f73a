package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

// TestPassword is the plaintext password of every seeded user.
const TestPassword = "password123"

func SeedTestUser(t *testing.T, db *sql.DB, email, name string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

// SeedTestClient creates a client user and profile holding balance.
func SeedTestClient(t *testing.T, db *sql.DB, email string, balance domain.Money) *domain.Client {
	t.Helper()

	u := SeedTestUser(t, db, email, "Client "+email, domain.RoleClient)
	c := &domain.Client{
		ID:          uuid.New(),
		UserID:      u.ID,
		DisplayName: u.Name,
		Balance:     balance,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO clients (id, user_id, display_name, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.DisplayName, c.Balance, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test client %s: %v", email, err)
	}
	return c
}

func SeedTestFreelancer(t *testing.T, db *sql.DB, email string, balance domain.Money) *domain.Freelancer {
	t.Helper()

	u := SeedTestUser(t, db, email, "Freelancer "+email, domain.RoleFreelancer)
	f := &domain.Freelancer{
		ID:          uuid.New(),
		UserID:      u.ID,
		DisplayName: u.Name,
		Languages:   []string{"en", "fr"},
		Services:    []string{string(domain.ServiceTranslation)},
		Balance:     balance,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO freelancers (id, user_id, display_name, languages, services, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.UserID, f.DisplayName, pq.Array(f.Languages), pq.Array(f.Services), f.Balance, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test freelancer %s: %v", email, err)
	}
	return f
}

// SeedTestProject creates a project between client and freelancer in the given
// status. A nil freelancer leaves the project unassigned.
func SeedTestProject(t *testing.T, db *sql.DB, clientID uuid.UUID, freelancerID *uuid.UUID, status domain.ProjectStatus, budget domain.Money) *domain.Project {
	t.Helper()

	p := &domain.Project{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Title:        "Subtitle translation",
		Description:  "EN to FR subtitles for a short film",
		ServiceType:  domain.ServiceTranslation,
		Budget:       budget,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO projects (id, client_id, freelancer_id, title, description, service_type, budget, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ClientID, p.FreelancerID, p.Title, p.Description, p.ServiceType, p.Budget, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed test project: %v", err)
	}
	return p
}

func GetClientBalance(t *testing.T, db *sql.DB, clientID uuid.UUID) domain.Money {
	t.Helper()

	var balance int64
	if err := db.QueryRow(`SELECT balance FROM clients WHERE id = $1`, clientID).Scan(&balance); err != nil {
		t.Fatalf("get client balance %s: %v", clientID, err)
	}
	return domain.Money(balance)
}

func GetFreelancerBalance(t *testing.T, db *sql.DB, freelancerID uuid.UUID) domain.Money {
	t.Helper()

	var balance int64
	if err := db.QueryRow(`SELECT balance FROM freelancers WHERE id = $1`, freelancerID).Scan(&balance); err != nil {
		t.Fatalf("get freelancer balance %s: %v", freelancerID, err)
	}
	return domain.Money(balance)
}

func GetProjectStatus(t *testing.T, db *sql.DB, projectID uuid.UUID) domain.ProjectStatus {
	t.Helper()

	var status string
	if err := db.QueryRow(`SELECT status FROM projects WHERE id = $1`, projectID).Scan(&status); err != nil {
		t.Fatalf("get project status %s: %v", projectID, err)
	}
	return domain.ProjectStatus(status)
}

func CountRevenueEntries(t *testing.T, db *sql.DB, projectID uuid.UUID) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM platform_revenue WHERE project_id = $1`, projectID).Scan(&count); err != nil {
		t.Fatalf("count revenue entries for project %s: %v", projectID, err)
	}
	return count
}

func CountBalanceTransactions(t *testing.T, db *sql.DB, projectID uuid.UUID) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM balance_transactions WHERE project_id = $1`, projectID).Scan(&count); err != nil {
		t.Fatalf("count balance transactions for project %s: %v", projectID, err)
	}
	return count
}
