package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/model"
	"github.com/sakif/profile-store/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// psql builds statements with SQLite's "?" placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const profileColumns = "id, name, email, education, github, linkedin, portfolio, created_at, updated_at"

// Create inserts a profile and all of its children in one transaction.
//
// On success the caller's profile carries the generated ids: profile.ID and
// the ID/ProfileID of every child, in submission order. A duplicate email
// fails the whole transaction with apperror.ErrConflict and leaves the store
// untouched.
func (db *DB) Create(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()
	var id int64

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (name, email, education, github, linkedin, portfolio, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			profile.Name,
			profile.Email,
			profile.Education,
			profile.GitHub,
			profile.LinkedIn,
			profile.Portfolio,
			now,
			now,
		)
		if err != nil {
			return mapProfileWriteError(err, profile.Email, "creating profile")
		}

		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading profile id: %w", err)
		}

		return insertChildren(ctx, tx, id, profile.Skills, profile.Projects, profile.Work)
	})
	if err != nil {
		return err
	}

	profile.ID = id
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

// insertChildren writes the three child collections for profileID and
// stores each generated id back into the slice element.
func insertChildren(ctx context.Context, tx *sql.Tx, profileID int64,
	skills []model.Skill, projects []model.Project, work []model.Work) error {

	for i := range skills {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO skills (name, profile_id) VALUES (?, ?)`,
			skills[i].Name, profileID,
		)
		if err != nil {
			return childWriteError(err, "skill", profileID)
		}
		if skills[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading skill id: %w", err)
		}
		skills[i].ProfileID = profileID
	}

	for i := range projects {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (title, description, link, profile_id) VALUES (?, ?, ?, ?)`,
			projects[i].Title, projects[i].Description, projects[i].Link, profileID,
		)
		if err != nil {
			return childWriteError(err, "project", profileID)
		}
		if projects[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading project id: %w", err)
		}
		projects[i].ProfileID = profileID
	}

	for i := range work {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO work (company, role, duration, profile_id) VALUES (?, ?, ?, ?)`,
			work[i].Company, work[i].Role, work[i].Duration, profileID,
		)
		if err != nil {
			return childWriteError(err, "work", profileID)
		}
		if work[i].ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading work id: %w", err)
		}
		work[i].ProfileID = profileID
	}

	return nil
}

func childWriteError(err error, resource string, profileID int64) error {
	if _, ok := constraintCode(err); ok {
		return apperror.ConstraintViolation(resource,
			fmt.Sprintf("cannot attach to profile %d: %v", profileID, err))
	}
	return fmt.Errorf("sqlite: inserting %s for profile %d: %w", resource, profileID, err)
}

// GetByID returns the profile with its children, or apperror.ErrNotFound.
// Profile row and children are read from the same snapshot.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	var profile *model.Profile

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

		p, err := scanProfile(row)
		if err == sql.ErrNoRows {
			return apperror.NotFound("profile", strconv.FormatInt(id, 10))
		}
		if err != nil {
			return fmt.Errorf("sqlite: getting profile %d: %w", id, err)
		}

		profiles := []model.Profile{*p}
		if err := loadChildren(ctx, tx, profiles); err != nil {
			return err
		}
		profile = &profiles[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// List returns every profile with its children, ascending by id.
func (db *DB) List(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles ORDER BY id`)
		if err != nil {
			return fmt.Errorf("sqlite: listing profiles: %w", err)
		}
		if profiles, err = scanProfiles(rows); err != nil {
			return err
		}
		return loadChildren(ctx, tx, profiles)
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update overwrites all scalar columns of an existing profile and replaces
// its children, all in one transaction. The caller's profile receives the
// new child ids and the refreshed UpdatedAt.
func (db *DB) Update(ctx context.Context, profile *model.Profile) error {
	now := time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE profiles
			 SET name = ?, email = ?, education = ?, github = ?, linkedin = ?, portfolio = ?, updated_at = ?
			 WHERE id = ?`,
			profile.Name,
			profile.Email,
			profile.Education,
			profile.GitHub,
			profile.LinkedIn,
			profile.Portfolio,
			now,
			profile.ID,
		)
		if err != nil {
			return mapProfileWriteError(err, profile.Email, fmt.Sprintf("updating profile %d", profile.ID))
		}
		if err := requireAffected(res, profile.ID); err != nil {
			return err
		}

		return replaceChildren(ctx, tx, profile.ID, profile.Skills, profile.Projects, profile.Work)
	})
	if err != nil {
		return err
	}

	profile.UpdatedAt = now
	return nil
}

// ReplaceChildren swaps the full child sets of a profile in one
// transaction. Readers see either every old child or every new one.
func (db *DB) ReplaceChildren(ctx context.Context, profileID int64,
	skills []model.Skill, projects []model.Project, work []model.Work) error {

	return db.withTx(ctx, func(tx *sql.Tx) error {
		// Touching updated_at doubles as the existence check and makes the
		// transaction a writer from its first statement.
		res, err := tx.ExecContext(ctx,
			`UPDATE profiles SET updated_at = ? WHERE id = ?`,
			time.Now().UTC(), profileID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: touching profile %d: %w", profileID, err)
		}
		if err := requireAffected(res, profileID); err != nil {
			return err
		}
		return replaceChildren(ctx, tx, profileID, skills, projects, work)
	})
}

func replaceChildren(ctx context.Context, tx *sql.Tx, profileID int64,
	skills []model.Skill, projects []model.Project, work []model.Work) error {

	for _, table := range []string{"skills", "projects", "work"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE profile_id = ?`, profileID); err != nil {
			return fmt.Errorf("sqlite: clearing %s of profile %d: %w", table, profileID, err)
		}
	}

	// Ids from a previous read must not leak into the new rows.
	for i := range skills {
		skills[i].ID = 0
	}
	for i := range projects {
		projects[i].ID = 0
	}
	for i := range work {
		work[i].ID = 0
	}

	return insertChildren(ctx, tx, profileID, skills, projects, work)
}

// Delete removes the profile. Its skills, projects and work rows are
// removed by the ON DELETE CASCADE foreign keys within the same statement.
func (db *DB) Delete(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting profile %d: %w", id, err)
		}
		return requireAffected(res, id)
	})
}

// DeleteAll empties the store.
func (db *DB) DeleteAll(ctx context.Context) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
			return fmt.Errorf("sqlite: deleting all profiles: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored profiles.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting profiles: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var education, github, linkedin, portfolio sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&education,
		&github,
		&linkedin,
		&portfolio,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Education = stringPtr(education)
	p.GitHub = stringPtr(github)
	p.LinkedIn = stringPtr(linkedin)
	p.Portfolio = stringPtr(portfolio)
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]model.Profile, error) {
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}
	return profiles, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// loadChildren fills Skills, Projects and Work of every profile in place,
// each collection in ascending id (insertion) order. Collections with no
// rows are set to empty, non-nil slices.
func loadChildren(ctx context.Context, q querier, profiles []model.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	index := make(map[int64]int, len(profiles))
	ids := make([]int64, 0, len(profiles))
	for i := range profiles {
		profiles[i].Skills = []model.Skill{}
		profiles[i].Projects = []model.Project{}
		profiles[i].Work = []model.Work{}
		index[profiles[i].ID] = i
		ids = append(ids, profiles[i].ID)
	}

	skills, err := selectSkills(ctx, q, sq.Eq{"profile_id": ids})
	if err != nil {
		return err
	}
	for _, s := range skills {
		p := &profiles[index[s.ProfileID]]
		p.Skills = append(p.Skills, s)
	}

	projects, err := selectProjects(ctx, q, psql.Select(projectColumns...).
		From("projects").
		Where(sq.Eq{"profile_id": ids}).
		OrderBy("id"))
	if err != nil {
		return err
	}
	for _, pr := range projects {
		p := &profiles[index[pr.ProfileID]]
		p.Projects = append(p.Projects, pr)
	}

	work, err := selectWork(ctx, q, sq.Eq{"profile_id": ids})
	if err != nil {
		return err
	}
	for _, w := range work {
		p := &profiles[index[w.ProfileID]]
		p.Work = append(p.Work, w)
	}

	return nil
}

func selectSkills(ctx context.Context, q querier, where sq.Sqlizer) ([]model.Skill, error) {
	query, args, err := psql.Select("id", "profile_id", "name").
		From("skills").
		Where(where).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building skills query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying skills: %w", err)
	}
	defer rows.Close()

	skills := make([]model.Skill, 0)
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning skill row: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating skills: %w", err)
	}
	return skills, nil
}

var projectColumns = []string{"id", "profile_id", "title", "description", "link"}

// selectProjects runs a projects SELECT whose column list is projectColumns.
func selectProjects(ctx context.Context, q querier, builder sq.SelectBuilder) ([]model.Project, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building projects query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		var p model.Project
		var description, link sql.NullString
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Title, &description, &link); err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		p.Description = stringPtr(description)
		p.Link = stringPtr(link)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}
	return projects, nil
}

func selectWork(ctx context.Context, q querier, where sq.Sqlizer) ([]model.Work, error) {
	query, args, err := psql.Select("id", "profile_id", "company", "role", "duration").
		From("work").
		Where(where).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building work query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying work: %w", err)
	}
	defer rows.Close()

	work := make([]model.Work, 0)
	for rows.Next() {
		var w model.Work
		var role, duration sql.NullString
		if err := rows.Scan(&w.ID, &w.ProfileID, &w.Company, &role, &duration); err != nil {
			return nil, fmt.Errorf("sqlite: scanning work row: %w", err)
		}
		w.Role = stringPtr(role)
		w.Duration = stringPtr(duration)
		work = append(work, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating work: %w", err)
	}
	return work, nil
}
