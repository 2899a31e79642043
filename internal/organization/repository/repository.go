package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() organizationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, org *organizationdomain.Organization) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO organizations (
			id, name, slug, contact_email, contact_phone, address, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.ContactEmail,
		org.ContactPhone,
		org.Address,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, contact_email, contact_phone, address, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, contact_email, contact_phone, address, created_at, updated_at
		 FROM organizations WHERE name = ?`,
		name,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM organizations WHERE id = ?`,
		id,
	).Error
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *organizationdomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (
			id, org_id, email, display_name, password_hash, role, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.OrgID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) CountUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) DeleteUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM users WHERE org_id = ?`,
		orgID,
	).Error
}
