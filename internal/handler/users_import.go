package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/config"
	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
	"github.com/mugeunji/studio-reservation/internal/utils"
)

// UserImportHandler replaces the whole user list from an uploaded CSV.
// It writes users through the store directly: user records belong to the
// identity side of the system, and the reservation engine only ever reads
// them.
type UserImportHandler struct {
	Cfg   config.Config
	Store store.Store
}

func NewUserImportHandler(cfg config.Config, st store.Store) *UserImportHandler {
	return &UserImportHandler{Cfg: cfg, Store: st}
}

// Import handles POST /admin/users/import.  The multipart field "file"
// must hold a CSV with a username,password,allowed_hours,role header.
// Plaintext passwords are bcrypt-hashed on the way in; the replacement is
// one transaction, so a malformed row leaves the old list intact.
func (h *UserImportHandler) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only CSV files are accepted"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open upload"})
	}
	defer f.Close()

	users, err := parseUserCSV(f, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	tx, err := h.Store.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := tx.ReplaceUsers(ctx, users); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to replace users"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("replaced user list with %d users", len(users)),
	})
}

// parseUserCSV reads username,password,allowed_hours,role rows.  A header
// row is recognised by its first field and skipped.
func parseUserCSV(r io.Reader, bcryptCost int) ([]model.User, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	var users []model.User
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %v", err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "username") {
			continue
		}
		if len(record) < 4 {
			return nil, fmt.Errorf("line %d: want username,password,allowed_hours,role", line)
		}
		username := strings.TrimSpace(record[0])
		if username == "" {
			return nil, fmt.Errorf("line %d: empty username", line)
		}
		hours, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("line %d: invalid allowed_hours %q", line, record[2])
		}
		role := strings.TrimSpace(record[3])
		switch role {
		case model.RoleAdmin, model.RoleFree, model.RoleUser:
		default:
			return nil, fmt.Errorf("line %d: unknown role %q", line, role)
		}
		hash, err := utils.HashPassword(record[1], bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("line %d: hash password: %v", line, err)
		}
		users = append(users, model.User{
			Username:     username,
			PasswordHash: hash,
			AllowedHours: hours,
			Role:         role,
		})
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no user rows found")
	}
	return users, nil
}
