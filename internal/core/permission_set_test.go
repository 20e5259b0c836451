package core

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestPermissionSetExactMatch(t *testing.T) {
	g := NewWithT(t)
	set := NewPermissionSet(PermKeysRead, PermFoldersRead)

	g.Expect(set.Has(PermKeysRead)).To(BeTrue())
	g.Expect(set.Has(PermKeysWrite)).To(BeFalse())
	g.Expect(set.Has("")).To(BeFalse())
}

func TestPermissionSetGlobalWildcard(t *testing.T) {
	g := NewWithT(t)
	set := NewPermissionSet(Wildcard)

	g.Expect(set.Has(PermKeysRead)).To(BeTrue())
	g.Expect(set.Has(PermFoldersDelete)).To(BeTrue())
	g.Expect(set.Has("anything:at-all")).To(BeTrue())
}

func TestPermissionSetCategoryWildcard(t *testing.T) {
	g := NewWithT(t)
	set := NewPermissionSet("keys:*")

	g.Expect(set.Has(PermKeysRead)).To(BeTrue())
	g.Expect(set.Has(PermKeysDelete)).To(BeTrue())
	g.Expect(set.Has(PermFoldersRead)).To(BeFalse())
}

func TestPermissionSetQuantifiers(t *testing.T) {
	g := NewWithT(t)
	set := NewPermissionSet(PermKeysRead)

	g.Expect(set.HasAny([]string{PermFoldersRead, PermKeysRead})).To(BeTrue())
	g.Expect(set.HasAny([]string{PermFoldersRead})).To(BeFalse())
	g.Expect(set.HasAll([]string{PermKeysRead})).To(BeTrue())
	g.Expect(set.HasAll([]string{PermKeysRead, PermKeysWrite})).To(BeFalse())
	g.Expect(set.HasAll(nil)).To(BeTrue())
}

func TestPermissionSetIgnoresEmptyTokens(t *testing.T) {
	g := NewWithT(t)
	set := NewPermissionSet("", PermKeysRead)

	g.Expect(set.List()).To(Equal([]string{PermKeysRead}))
}
