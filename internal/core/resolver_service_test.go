package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/crypto"
	"keyvault-backend-go/internal/models"
)

const testOwnerID = "user-1"

var testEncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))

func mustEncrypt(t *testing.T, plain string) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(testEncryptionKey)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := crypto.Encrypt(plain, key)
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

type resolverFixture struct {
	resolver   PathResolver
	folderRepo *fakeFolderRepo
	keyRepo    *fakeKeyRepo
}

// newResolverFixture seeds a tree the tests navigate:
//
//	Webmeter (project)
//	├── Database
//	│   ├── DB_URL        [DEVELOPMENT]
//	│   ├── Shared        [DEVELOPMENT]  (key)
//	│   ├── Shared                        (folder)
//	│   └── Replicas                      (folder)
//	└── API_TOKEN         [PRODUCTION]
//	Billing (project)
func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	folderRepo := newFakeFolderRepo()
	keyRepo := newFakeKeyRepo()

	webmeter := folderRepo.add("Webmeter", "", testOwnerID)
	folderRepo.add("Billing", "", testOwnerID)
	database := folderRepo.add("Database", webmeter.ID, testOwnerID)
	folderRepo.add("Shared", database.ID, testOwnerID)
	folderRepo.add("Replicas", database.ID, testOwnerID)

	keyRepo.add("DB_URL", database.ID, testOwnerID, mustEncrypt(t, "postgres://dev"), models.EnvDevelopment)
	keyRepo.add("Shared", database.ID, testOwnerID, mustEncrypt(t, "shared-secret"), models.EnvDevelopment)
	keyRepo.add("API_TOKEN", webmeter.ID, testOwnerID, mustEncrypt(t, "tok-prod"), models.EnvProduction)

	resolver, err := NewPathResolver(folderRepo, keyRepo, NewEncryptionService(), testEncryptionKey, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return &resolverFixture{resolver: resolver, folderRepo: folderRepo, keyRepo: keyRepo}
}

func (f *resolverFixture) resolve(path, environment string, typ ResolveType) (*Resolution, *ResolveError) {
	return f.resolver.Resolve(context.Background(), ResolveRequest{
		Principal:      &models.Principal{ID: testOwnerID},
		Path:           path,
		RawEnvironment: environment,
		Type:           typ,
	})
}

func TestResolveProjectViewNeverRequiresEnvironment(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	res, rerr := f.resolve("Webmeter", "", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindProject))
	g.Expect(res.Environment).To(Equal("all"))
	g.Expect(res.Project.Name).To(Equal("Webmeter"))
	g.Expect(res.Subfolders).To(HaveLen(1))
	g.Expect(res.Subfolders[0].Name).To(Equal("Database"))
	g.Expect(res.Keys).To(HaveLen(1))
	g.Expect(res.Keys[0].Name).To(Equal("API_TOKEN"))
	// Listings never carry values.
	g.Expect(res.Keys[0].Value).To(BeEmpty())
}

func TestResolveProjectViewEnvironmentFilterIsOptional(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	res, rerr := f.resolve("Webmeter", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindProject))
	g.Expect(res.Environment).To(Equal("DEVELOPMENT"))
	// API_TOKEN is PRODUCTION so the filter drops it.
	g.Expect(res.Keys).To(BeEmpty())
}

func TestResolveKeyWithEnvironment(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	res, rerr := f.resolve("Webmeter/Database/DB_URL", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindKey))
	g.Expect(res.Key.Name).To(Equal("DB_URL"))
	g.Expect(res.Key.Value).To(Equal("postgres://dev"))
	g.Expect(res.FolderPath).To(Equal("Webmeter/Database"))
	g.Expect(res.Folder.Name).To(Equal("Database"))
}

func TestResolveEnvironmentIsCaseInsensitive(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	lower, rerr := f.resolve("Webmeter/Database/DB_URL", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	upper, rerr := f.resolve("Webmeter/Database/DB_URL", "DEVELOPMENT", ResolveAuto)
	g.Expect(rerr).To(BeNil())

	g.Expect(upper.Key.Value).To(Equal(lower.Key.Value))
	g.Expect(upper.Environment).To(Equal(lower.Environment))
}

func TestResolveEnvironmentIsAHardFilter(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	// DB_URL exists only in DEVELOPMENT; asking for PRODUCTION is a miss
	// carrying both kinds of hints.
	_, rerr := f.resolve("Webmeter/Database/DB_URL", "production", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeKeyNotFound))
	g.Expect(rerr.Status).To(Equal(404))
	g.Expect(rerr.FoundPath).To(Equal("Webmeter/Database"))
	g.Expect(rerr.AvailableKeys).To(ContainElement(KeyHint{
		Name:        "DB_URL",
		Environment: models.EnvDevelopment,
		Type:        models.KeyTypeSecret,
	}))
	g.Expect(rerr.AvailableSubfolders).To(ConsistOf("Replicas", "Shared"))
}

func TestResolveKeyDepthRequiresEnvironment(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	_, rerr := f.resolve("Webmeter/Database/DB_URL", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeEnvironmentRequired))
	g.Expect(rerr.Status).To(Equal(400))

	// Depth 2 under auto probes a key too, so it is equally gated.
	_, rerr = f.resolve("Webmeter/API_TOKEN", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeEnvironmentRequired))
}

func TestResolveExplicitFolderTypeSkipsEnvironmentGate(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	res, rerr := f.resolve("Webmeter/Database", "", ResolveFolder)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindFolder))
	g.Expect(res.Folder.Name).To(Equal("Database"))
	g.Expect(res.FolderPath).To(Equal("Webmeter/Database"))
	g.Expect(res.Subfolders).To(HaveLen(2))
	g.Expect(res.Keys).To(HaveLen(2))
}

func TestResolveInvalidEnvironmentWinsOverPathValidity(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	// The path is also malformed; the environment error is reported anyway.
	_, rerr := f.resolve("   ", "qa", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeInvalidEnvironment))
	g.Expect(rerr.Status).To(Equal(400))
	g.Expect(rerr.AcceptedValues).To(ContainElements("DEVELOPMENT", "STAGING", "TESTING", "PRODUCTION", "LOCAL", "OTHER"))
}

func TestResolveWhitespacePathIsInvalid(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	_, rerr := f.resolve("   ", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeInvalidPath))

	_, rerr = f.resolve("///", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeInvalidPath))
}

func TestResolvePathTooDeep(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	_, rerr := f.resolve("a/b/c/d/e/f/g/h/i/j/k", "development", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodePathTooDeep))
	g.Expect(rerr.CurrentDepth).To(Equal(11))
	g.Expect(rerr.MaxDepth).To(Equal(10))
}

func TestResolveProjectNotFoundListsProjects(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	_, rerr := f.resolve("NoSuchProject", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeProjectNotFound))
	g.Expect(rerr.Status).To(Equal(404))
	g.Expect(rerr.AvailableProjects).To(ConsistOf(
		ProjectHint{Name: "Billing"},
		ProjectHint{Name: "Webmeter"},
	))
}

func TestResolveSubfolderNotFoundMidPath(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	_, rerr := f.resolve("Webmeter/NoDir/DB_URL", "development", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeSubfolderNotFound))
	g.Expect(rerr.FoundPath).To(Equal("Webmeter"))
	g.Expect(rerr.MissingName).To(Equal("NoDir"))
	g.Expect(rerr.AvailableSubfolders).To(ConsistOf("Database"))
}

func TestResolveKeyWinsTieBreakOverFolder(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	// "Shared" names both a key and a folder under Database.
	res, rerr := f.resolve("Webmeter/Database/Shared", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindKey))
	g.Expect(res.Key.Value).To(Equal("shared-secret"))
}

func TestResolveTerminalFolderFallbackAtDepthThree(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	// No key named Replicas in DEVELOPMENT; the name matches a folder.
	res, rerr := f.resolve("Webmeter/Database/Replicas", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindFolder))
	g.Expect(res.Folder.Name).To(Equal("Replicas"))
	g.Expect(res.FolderPath).To(Equal("Webmeter/Database/Replicas"))
}

func TestResolveNoFolderFallbackAtDepthTwo(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	// "Webmeter/Database" under auto is a key probe only; the folder with
	// that name is reachable via ?type=folder.
	_, rerr := f.resolve("Webmeter/Database", "development", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeKeyNotFound))
	g.Expect(rerr.AvailableSubfolders).To(ConsistOf("Database"))
}

func TestResolveKeyDirectlyUnderProject(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	res, rerr := f.resolve("Webmeter/API_TOKEN", "production", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindKey))
	g.Expect(res.Key.Value).To(Equal("tok-prod"))
	// The key sits directly under the project, so no folder is reported.
	g.Expect(res.Folder).To(BeNil())
}

func TestResolveDecryptionFailureSubstitutesPlaceholder(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	database, err := f.folderRepo.FindSubfolder(context.Background(), "Database", mustProjectID(t, f), testOwnerID)
	g.Expect(err).NotTo(HaveOccurred())
	f.keyRepo.add("BROKEN", database.ID, testOwnerID, "not-a-ciphertext", models.EnvDevelopment)

	res, rerr := f.resolve("Webmeter/Database/BROKEN", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(res.Kind).To(Equal(KindKey))
	g.Expect(res.Key.Value).To(Equal("[Encrypted]"))
}

func TestResolveStoreFailureIsSanitized(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)
	f.folderRepo.failWith = errors.New("rpc error: connection reset")

	_, rerr := f.resolve("Webmeter", "", ResolveAuto)
	g.Expect(rerr).NotTo(BeNil())
	g.Expect(rerr.Code).To(Equal(CodeInternalError))
	g.Expect(rerr.Status).To(Equal(500))
	g.Expect(rerr.Message).NotTo(ContainSubstring("connection reset"))
}

func TestResolveIdenticalCallsAreIdempotent(t *testing.T) {
	g := NewWithT(t)
	f := newResolverFixture(t)

	first, rerr := f.resolve("Webmeter/Database/DB_URL", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	second, rerr := f.resolve("Webmeter/Database/DB_URL", "development", ResolveAuto)
	g.Expect(rerr).To(BeNil())
	g.Expect(second).To(Equal(first))
}

func TestNewPathResolverRejectsBadKey(t *testing.T) {
	g := NewWithT(t)

	_, err := NewPathResolver(newFakeFolderRepo(), newFakeKeyRepo(), NewEncryptionService(), "not base64!!", zap.NewNop())
	g.Expect(err).To(MatchError(ErrInvalidEncryptionKey))

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewPathResolver(newFakeFolderRepo(), newFakeKeyRepo(), NewEncryptionService(), short, zap.NewNop())
	g.Expect(err).To(MatchError(ErrInvalidEncryptionKey))
}

func mustProjectID(t *testing.T, f *resolverFixture) string {
	t.Helper()
	project, err := f.folderRepo.FindProjectByName(context.Background(), "Webmeter", testOwnerID)
	if err != nil || project == nil {
		t.Fatal("fixture project missing")
	}
	return project.ID
}
