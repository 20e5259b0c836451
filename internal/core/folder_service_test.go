package core

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/models"
)

type folderFixture struct {
	svc        FolderService
	folderRepo *fakeFolderRepo
	keyRepo    *fakeKeyRepo
	audit      *fakeAuditRepo
}

func newFolderFixture() *folderFixture {
	f := &folderFixture{
		folderRepo: newFakeFolderRepo(),
		keyRepo:    newFakeKeyRepo(),
		audit:      &fakeAuditRepo{},
	}
	auditSvc := NewAuditService(f.audit, nil, "", zap.NewNop())
	f.svc = NewFolderService(f.folderRepo, f.keyRepo, auditSvc, zap.NewNop())
	return f
}

func TestCreateFolderProjectAndChild(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()

	project, err := f.svc.CreateFolder(context.Background(), testOwnerID, models.CreateFolderRequest{Name: "Webmeter"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(project.IsProject()).To(BeTrue())

	child, err := f.svc.CreateFolder(context.Background(), testOwnerID, models.CreateFolderRequest{
		Name:     "Database",
		ParentID: project.ID,
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(child.ParentID).To(Equal(project.ID))

	g.Expect(f.audit.entries).To(HaveLen(2))
	g.Expect(f.audit.entries[0].Action).To(Equal("FOLDER_CREATE"))
}

func TestCreateFolderRejectsMissingParent(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()

	_, err := f.svc.CreateFolder(context.Background(), testOwnerID, models.CreateFolderRequest{
		Name:     "Orphan",
		ParentID: "no-such-folder",
	})
	g.Expect(err).To(MatchError(ErrParentNotFound))
}

func TestGetFolderHidesOtherOwners(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()
	other := f.folderRepo.add("Theirs", "", "user-2")

	_, err := f.svc.GetFolder(context.Background(), testOwnerID, other.ID)
	g.Expect(err).To(MatchError(ErrFolderNotFound))
}

func TestUpdateFolderRejectsCycles(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()
	project := f.folderRepo.add("Webmeter", "", testOwnerID)
	child := f.folderRepo.add("Database", project.ID, testOwnerID)
	grandchild := f.folderRepo.add("Replicas", child.ID, testOwnerID)

	// A folder cannot become its own parent.
	self := child.ID
	_, err := f.svc.UpdateFolder(context.Background(), testOwnerID, child.ID, models.UpdateFolderRequest{ParentID: &self})
	g.Expect(err).To(MatchError(ErrFolderCycle))

	// Nor may it move under its own descendant.
	target := grandchild.ID
	_, err = f.svc.UpdateFolder(context.Background(), testOwnerID, child.ID, models.UpdateFolderRequest{ParentID: &target})
	g.Expect(err).To(MatchError(ErrFolderCycle))
}

func TestDeleteFolderCascadeRelocatesKeysAndDeletesSubfolders(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()
	project := f.folderRepo.add("Webmeter", "", testOwnerID)
	database := f.folderRepo.add("Database", project.ID, testOwnerID)
	replicas := f.folderRepo.add("Replicas", database.ID, testOwnerID)
	k1 := f.keyRepo.add("DB_URL", database.ID, testOwnerID, "enc", models.EnvDevelopment)
	k2 := f.keyRepo.add("REPLICA_URL", replicas.ID, testOwnerID, "enc", models.EnvDevelopment)

	err := f.svc.DeleteFolder(context.Background(), testOwnerID, database.ID)
	g.Expect(err).NotTo(HaveOccurred())

	// Both folders are gone.
	gone, err := f.folderRepo.GetByID(context.Background(), database.ID, testOwnerID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gone).To(BeNil())
	gone, err = f.folderRepo.GetByID(context.Background(), replicas.ID, testOwnerID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gone).To(BeNil())

	// Keys survive, relocated to root.
	for _, id := range []string{k1.ID, k2.ID} {
		key, err := f.keyRepo.GetByID(context.Background(), id, testOwnerID)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(key).NotTo(BeNil())
		g.Expect(key.FolderID).To(BeEmpty())
	}
}

func TestGetFolderTreeBuildsNestedStructure(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()
	project := f.folderRepo.add("Webmeter", "", testOwnerID)
	database := f.folderRepo.add("Database", project.ID, testOwnerID)
	f.folderRepo.add("Replicas", database.ID, testOwnerID)
	f.keyRepo.add("API_TOKEN", project.ID, testOwnerID, "enc", models.EnvProduction)

	tree, err := f.svc.GetFolderTree(context.Background(), testOwnerID, project.ID)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tree.Folder.Name).To(Equal("Webmeter"))
	g.Expect(tree.Keys).To(HaveLen(1))
	g.Expect(tree.Keys[0].Value).To(BeEmpty())
	g.Expect(tree.Children).To(HaveLen(1))
	g.Expect(tree.Children[0].Folder.Name).To(Equal("Database"))
	g.Expect(tree.Children[0].Children).To(HaveLen(1))
}

func TestGetFolderTreeDetectsParentCycle(t *testing.T) {
	g := NewWithT(t)
	f := newFolderFixture()
	a := f.folderRepo.add("A", "", testOwnerID)
	b := f.folderRepo.add("B", a.ID, testOwnerID)
	// Corrupt the store: A becomes a child of B.
	f.folderRepo.folders[a.ID].ParentID = b.ID

	_, err := f.svc.GetFolderTree(context.Background(), testOwnerID, a.ID)
	g.Expect(err).To(MatchError(ErrFolderCycle))
}
