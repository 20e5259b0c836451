package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"keyvault-backend-go/internal/models"
)

const (
	rolesCollection       = "roles"
	teamMembersCollection = "team_members"
	aclsCollection        = "access_control_lists"
)

// firestoreRBACRepository implements the role, team-membership and ACL
// contracts on a single Firestore client. Role documents embed their
// permission list directly.
type firestoreRBACRepository struct {
	client *firestore.Client
}

// NewFirestoreRBACRepository creates the RBAC repository. The returned value
// satisfies RoleRepository, TeamRepository and ACLRepository.
func NewFirestoreRBACRepository(client *firestore.Client) *firestoreRBACRepository {
	return &firestoreRBACRepository{client: client}
}

var (
	_ RoleRepository = (*firestoreRBACRepository)(nil)
	_ TeamRepository = (*firestoreRBACRepository)(nil)
	_ ACLRepository  = (*firestoreRBACRepository)(nil)
)

func (r *firestoreRBACRepository) GetRolePermissions(ctx context.Context, roleID string) ([]string, error) {
	if roleID == "" {
		return nil, nil
	}
	snap, err := r.client.Collection(rolesCollection).Doc(roleID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Unknown roles resolve to no permissions, not an error: the
			// evaluator must fail closed rather than fail the request.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role %q: %w", roleID, err)
	}

	var role models.Role
	if err := snap.DataTo(&role); err != nil {
		return nil, fmt.Errorf("failed to decode role %q: %w", roleID, err)
	}
	return role.Permissions, nil
}

func (r *firestoreRBACRepository) GetMemberRole(ctx context.Context, userID, teamID string) (string, error) {
	iter := r.client.Collection(teamMembersCollection).
		Where("userId", "==", userID).
		Where("teamId", "==", teamID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query team membership for user %q in team %q: %w", userID, teamID, err)
	}

	var member models.TeamMember
	if err := doc.DataTo(&member); err != nil {
		return "", fmt.Errorf("failed to decode team member %q: %w", doc.Ref.ID, err)
	}
	return member.RoleID, nil
}

func (r *firestoreRBACRepository) ListForPrincipal(ctx context.Context, q ACLQuery) ([]*models.ACLEntry, error) {
	// Firestore has no OR across fields, so the three principal scopes are
	// queried separately and merged.
	var entries []*models.ACLEntry

	collect := func(query firestore.Query) error {
		iter := query.Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			var entry models.ACLEntry
			if err := doc.DataTo(&entry); err != nil {
				return fmt.Errorf("failed to decode ACL entry %q: %w", doc.Ref.ID, err)
			}
			entry.ID = doc.Ref.ID
			entries = append(entries, &entry)
		}
	}

	col := r.client.Collection(aclsCollection)
	if q.UserID != "" {
		if err := collect(col.Where("userId", "==", q.UserID)); err != nil {
			return nil, fmt.Errorf("failed to list user ACLs: %w", err)
		}
	}
	if q.TeamID != "" {
		if err := collect(col.Where("teamId", "==", q.TeamID)); err != nil {
			return nil, fmt.Errorf("failed to list team ACLs: %w", err)
		}
	}
	for _, roleID := range q.RoleIDs {
		if roleID == "" {
			continue
		}
		if err := collect(col.Where("roleId", "==", roleID)); err != nil {
			return nil, fmt.Errorf("failed to list role ACLs: %w", err)
		}
	}
	return entries, nil
}

func (r *firestoreRBACRepository) FindForResource(ctx context.Context, resourceType, resourceID string, q ACLQuery) (*models.ACLEntry, error) {
	entries, err := r.ListForPrincipal(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.ResourceType == resourceType && entry.ResourceID == resourceID {
			return entry, nil
		}
	}
	return nil, nil
}
