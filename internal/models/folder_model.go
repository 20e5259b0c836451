package models

import "time"

// Folder is a node in a user's secret hierarchy. A folder whose ParentID is
// empty is a project (root of the tree). Names are unique only among siblings.
type Folder struct {
	ID          string    `json:"id" firestore:"-"` // Document ID, auto-generated
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Color       string    `json:"color,omitempty" firestore:"color,omitempty"`
	ParentID    string    `json:"parentId,omitempty" firestore:"parentId"` // "" means root (project)
	OwnerID     string    `json:"ownerId" firestore:"ownerId"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// IsProject reports whether the folder is a root-level project.
func (f *Folder) IsProject() bool {
	return f.ParentID == ""
}

// FolderNode is a folder together with its resolved children, as produced by
// the tree builder.
type FolderNode struct {
	Folder   *Folder       `json:"folder"`
	Children []*FolderNode `json:"children,omitempty"`
	Keys     []*Key        `json:"keys,omitempty"`
}
