package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/middleware"
	"keyvault-backend-go/internal/models"
)

type fakeResolver struct {
	res  *core.Resolution
	rerr *core.ResolveError
	got  core.ResolveRequest
}

func (r *fakeResolver) Resolve(ctx context.Context, req core.ResolveRequest) (*core.Resolution, *core.ResolveError) {
	r.got = req
	return r.res, r.rerr
}

type fakePermService struct {
	set           core.PermissionSet
	resourceAllow map[string]bool // resourceID -> scoped grant
	accessLogs    []models.AccessLog
}

func (p *fakePermService) LoadPermissions(ctx context.Context, principal *models.Principal, teamID string) core.PermissionSet {
	return p.set
}

func (p *fakePermService) CheckResourceAccess(ctx context.Context, set core.PermissionSet, principal *models.Principal, teamID, resourceType, resourceID string, required []string) bool {
	if set.HasAll(required) {
		return true
	}
	return p.resourceAllow[resourceID]
}

func (p *fakePermService) LogAccess(ctx context.Context, entry models.AccessLog) {
	p.accessLogs = append(p.accessLogs, entry)
}

type fakeAuditService struct {
	entries []models.AuditLog
}

func (a *fakeAuditService) CreateAuditLog(ctx context.Context, entry models.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAuditService) RecordAccessDecision(ctx context.Context, entry models.AccessLog) {}

type accessTestEnv struct {
	router   *gin.Engine
	resolver *fakeResolver
	perms    *fakePermService
	audit    *fakeAuditService
}

func newAccessTestEnv(set core.PermissionSet) *accessTestEnv {
	gin.SetMode(gin.TestMode)
	env := &accessTestEnv{
		resolver: &fakeResolver{},
		perms:    &fakePermService{set: set},
		audit:    &fakeAuditService{},
	}
	handler := NewAccessHandler(env.resolver, env.perms, env.audit, zap.NewNop())

	env.router = gin.New()
	env.router.GET("/api/v1/access", func(c *gin.Context) {
		c.Set(middleware.PrincipalContextKey, &models.Principal{ID: "user-1"})
	}, handler.ResolvePath)
	return env
}

func (env *accessTestEnv) get(url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	env.router.ServeHTTP(w, req)
	return w
}

func TestAccessEndpointReturnsKeyView(t *testing.T) {
	g := NewWithT(t)
	env := newAccessTestEnv(core.NewPermissionSet(core.PermKeysRead))
	env.resolver.res = &core.Resolution{
		Kind:        core.KindKey,
		Path:        "Webmeter/Database/DB_URL",
		Environment: "DEVELOPMENT",
		Project:     &models.Folder{ID: "folder-1", Name: "Webmeter"},
		FolderPath:  "Webmeter/Database",
		Key:         &models.Key{ID: "key-1", Name: "DB_URL", Value: "postgres://dev"},
	}

	w := env.get("/api/v1/access?path=Webmeter/Database/DB_URL&environment=development")
	g.Expect(w.Code).To(Equal(http.StatusOK))

	var body AccessResponse
	g.Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	g.Expect(body.Success).To(BeTrue())
	g.Expect(body.Type).To(Equal("key"))
	g.Expect(body.Key.Value).To(Equal("postgres://dev"))

	// The resolver received the raw parameters.
	g.Expect(env.resolver.got.Path).To(Equal("Webmeter/Database/DB_URL"))
	g.Expect(env.resolver.got.RawEnvironment).To(Equal("development"))
	g.Expect(env.resolver.got.Type).To(Equal(core.ResolveAuto))

	// A successful key read produces a KEY_ACCESS audit entry.
	g.Expect(env.audit.entries).To(HaveLen(1))
	g.Expect(env.audit.entries[0].Action).To(Equal("KEY_ACCESS"))
	g.Expect(env.audit.entries[0].TargetID).To(Equal("key-1"))
}

func TestAccessEndpointReturnsProjectViewWithTotals(t *testing.T) {
	g := NewWithT(t)
	env := newAccessTestEnv(core.NewPermissionSet(core.Wildcard))
	env.resolver.res = &core.Resolution{
		Kind:        core.KindProject,
		Path:        "Webmeter",
		Environment: "all",
		Project:     &models.Folder{ID: "folder-1", Name: "Webmeter"},
		Keys:        []*models.Key{{ID: "key-1", Name: "API_TOKEN"}},
		Subfolders:  []*models.Folder{{ID: "folder-2", Name: "Database"}},
	}

	w := env.get("/api/v1/access?path=Webmeter")
	g.Expect(w.Code).To(Equal(http.StatusOK))

	var body AccessResponse
	g.Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	g.Expect(body.Type).To(Equal("project"))
	g.Expect(body.TotalKeys).To(Equal(1))
	g.Expect(body.TotalSubfolders).To(Equal(1))
	g.Expect(env.audit.entries).To(BeEmpty())
}

func TestAccessEndpointMapsResolveErrorStatus(t *testing.T) {
	g := NewWithT(t)
	env := newAccessTestEnv(core.NewPermissionSet(core.PermKeysRead))
	env.resolver.rerr = &core.ResolveError{
		Code:    core.CodeProjectNotFound,
		Status:  http.StatusNotFound,
		Message: `Project "NoSuchProject" not found`,
	}

	w := env.get("/api/v1/access?path=NoSuchProject")
	g.Expect(w.Code).To(Equal(http.StatusNotFound))

	var body map[string]interface{}
	g.Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	g.Expect(body["success"]).To(Equal(false))
	g.Expect(body["error"]).To(Equal("PROJECT_NOT_FOUND"))
}

func TestAccessEndpointRequiresPathParameter(t *testing.T) {
	g := NewWithT(t)
	env := newAccessTestEnv(core.NewPermissionSet(core.PermKeysRead))

	w := env.get("/api/v1/access")
	g.Expect(w.Code).To(Equal(http.StatusBadRequest))

	var body map[string]interface{}
	g.Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
	g.Expect(body["error"]).To(Equal("MISSING_PATH"))
}

func TestAccessEndpointDeniesWithoutReadPermission(t *testing.T) {
	g := NewWithT(t)
	env := newAccessTestEnv(core.NewPermissionSet("billing:read"))

	w := env.get("/api/v1/access?path=Webmeter")
	g.Expect(w.Code).To(Equal(http.StatusForbidden))

	// The denial is recorded to the access log.
	g.Expect(env.perms.accessLogs).To(HaveLen(1))
	g.Expect(env.perms.accessLogs[0].Action).To(Equal("access_denied"))
	g.Expect(env.perms.accessLogs[0].Result).To(Equal("denied"))
}

func TestAccessEndpointRequiresAuthentication(t *testing.T) {
	g := NewWithT(t)
	gin.SetMode(gin.TestMode)
	handler := NewAccessHandler(&fakeResolver{}, &fakePermService{}, &fakeAuditService{}, zap.NewNop())
	router := gin.New()
	router.GET("/api/v1/access", handler.ResolvePath) // no principal injected

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/access?path=Webmeter", nil))
	g.Expect(w.Code).To(Equal(http.StatusUnauthorized))
}
