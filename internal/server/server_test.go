package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"paperflow/internal/config"
	"paperflow/internal/cron"
	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/service"
	"paperflow/internal/testutil"
	"paperflow/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *Server) {
	t.Helper()

	cfg := &config.Config{
		Port:          "8460",
		JWTSecret:     "unit-test-secret-0123456789abcdef",
		Env:           "test",
		AttachmentDir: t.TempDir(),
	}
	middleware.InitMiddleware(cfg)

	db := testutil.NewTestDB(t)
	srv := &Server{
		config:         cfg,
		db:             db,
		userRepo:       repository.NewUserRepository(db),
		paperRepo:      repository.NewPaperRepository(db),
		stageRepo:      repository.NewStageRepository(db),
		auditRepo:      repository.NewAuditLogRepository(db),
		optionRepo:     repository.NewDeadlineOptionRepository(db),
		attachmentRepo: repository.NewAttachmentRepository(db),
	}
	srv.userService = service.NewUserService(srv.userRepo)
	srv.paperService = service.NewPaperService(db, srv.paperRepo, srv.attachmentRepo, NewDiskStore(cfg.AttachmentDir))
	srv.workflowService = service.NewWorkflowService(db, workflow.NewTemplateRegistry(), nil)
	srv.optionService = service.NewDeadlineOptionService(srv.optionRepo)
	srv.auditService = service.NewAuditService(srv.auditRepo)
	srv.sweeper = cron.NewOverdueSweeper(srv.paperRepo, nil)

	app := fiber.New()
	srv.SetupRoutes(app)
	return app, srv
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// signup registers a user with the given role and returns their token.
func signup(t *testing.T, app *fiber.App, username string, role models.Role) string {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username":  username,
		"email":     username + "@example.edu",
		"password":  "Sup3rSecret",
		"full_name": "Test " + username,
		"role":      string(role),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestLivenessCheck(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	app, _ := newTestApp(t)

	token := signup(t, app, "flow_user", models.RoleRequisitioner)

	// Duplicate username is rejected.
	resp := doJSON(t, app, fiber.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username":  "flow_user",
		"email":     "other@example.edu",
		"password":  "Sup3rSecret",
		"full_name": "Other",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "flow_user",
		"password": "Sup3rSecret",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "flow_user",
		"password": "WrongPass1",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "flow_user", me.Username)

	resp = doJSON(t, app, fiber.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPaperLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	requisitioner := signup(t, app, "req_user", models.RoleRequisitioner)
	sps := signup(t, app, "sps_user", models.RoleSPS)
	vpAcad := signup(t, app, "vp_user", models.RoleVPAcad)

	resp := doJSON(t, app, fiber.MethodPost, "/api/papers/", requisitioner, fiber.Map{
		"title":      "Sports fest budget",
		"department": "PE Department",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var paper models.ConceptPaper
	decodeBody(t, resp, &paper)
	assert.Equal(t, models.PaperStatusPending, paper.Status)

	// Public tracking lookup needs no token.
	resp = doJSON(t, app, fiber.MethodGet, "/api/papers/track/"+paper.TrackingNumber, "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Only the owner (or an admin) may submit.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/submit", paper.ID), sps, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/submit", paper.ID), requisitioner, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &paper)
	assert.Equal(t, models.PaperStatusInProgress, paper.Status)

	// Submitting twice conflicts.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/submit", paper.ID), requisitioner, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// The VP Acad reviewer cannot act while the paper sits at SPS Review.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/advance", paper.ID), vpAcad, fiber.Map{
		"remarks": "looks fine",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/advance", paper.ID), sps, fiber.Map{
		"remarks":   "endorsed",
		"signature": "sps-sig",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &paper)
	require.NotNil(t, paper.CurrentStage)
	assert.Equal(t, models.StageVPAcadReview, paper.CurrentStage.StageName)

	// Returning reopens SPS Review; remarks are mandatory.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/return", paper.ID), vpAcad, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/return", paper.ID), vpAcad, fiber.Map{
		"remarks": "attach the quotation",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &paper)
	assert.Equal(t, models.PaperStatusReturned, paper.Status)
	require.NotNil(t, paper.CurrentStage)
	assert.Equal(t, models.StageSPSReview, paper.CurrentStage.StageName)

	// Returning the first stage has nowhere to go.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/return", paper.ID), sps, fiber.Map{
		"remarks": "push back further",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/papers/%d/audit", paper.ID), requisitioner, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var trail []models.AuditLog
	decodeBody(t, resp, &trail)
	assert.Len(t, trail, 3) // submitted, completed, returned

	resp = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/papers/%d/stages", paper.ID), requisitioner, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stageList []models.WorkflowStage
	decodeBody(t, resp, &stageList)
	require.Len(t, stageList, 7)
	for i, st := range stageList {
		assert.Equal(t, i+1, st.StageOrder)
	}
}

func TestInsertStageEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	requisitioner := signup(t, app, "owner_user", models.RoleRequisitioner)
	sps := signup(t, app, "sps_action", models.RoleSPS)
	admin := signup(t, app, "admin_user", models.RoleAdmin)

	resp := doJSON(t, app, fiber.MethodPost, "/api/papers/", requisitioner, fiber.Map{
		"title":      "Research grant disbursement",
		"department": "Research Office",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var paper models.ConceptPaper
	decodeBody(t, resp, &paper)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/submit", paper.ID), requisitioner, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/papers/%d/advance", paper.ID), sps, fiber.Map{
		"remarks": "cleared",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	insertBody := fiber.Map{
		"after_stage":   models.StageSPSReview,
		"stage_name":    "Legal Review",
		"assigned_role": string(models.RoleAdmin),
		"wait_days":     3,
	}

	// Admin only.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/admin/papers/%d/stages", paper.ID), sps, insertBody)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/admin/papers/%d/stages", paper.ID), admin, insertBody)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created models.WorkflowStage
	decodeBody(t, resp, &created)
	assert.Equal(t, "Legal Review", created.StageName)
	assert.Equal(t, 2, created.StageOrder)

	// Same insertion twice conflicts.
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/admin/papers/%d/stages", paper.ID), admin, insertBody)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Anchoring on a stage that never ran is a conflict too.
	insertBody["after_stage"] = models.StageAccounting
	insertBody["stage_name"] = "Another Review"
	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/admin/papers/%d/stages", paper.ID), admin, insertBody)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDeadlineOptionEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	user := signup(t, app, "any_user", models.RoleRequisitioner)
	admin := signup(t, app, "opt_admin", models.RoleAdmin)

	resp := doJSON(t, app, fiber.MethodGet, "/api/deadline-options/", user, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var options []models.DeadlineOption
	decodeBody(t, resp, &options)
	assert.NotEmpty(t, options)

	// Writes are admin-gated.
	resp = doJSON(t, app, fiber.MethodPost, "/api/admin/deadline-options", user, fiber.Map{
		"key": "5_days", "label": "5 Days", "hours": 120,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/admin/deadline-options", admin, fiber.Map{
		"key": "5_days", "label": "5 Days", "hours": 120,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPut, "/api/admin/deadline-options/5_days", admin, fiber.Map{
		"label": "Five Days", "hours": 120,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodDelete, "/api/admin/deadline-options/5_days", admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodDelete, "/api/admin/deadline-options/5_days", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
