package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/profile-store/internal/model"
	"github.com/sakif/profile-store/internal/repository"
)

var _ repository.QueryRepository = (*DB)(nil)

// ListProjects returns projects in ascending id order. With a non-empty
// skill it keeps only projects whose owner has a skill equal to skill
// ignoring case. The owner filter is a semi-join, so a profile listing the
// same skill twice ("Go", "go") does not duplicate its projects.
func (db *DB) ListProjects(ctx context.Context, skill string) ([]model.Project, error) {
	builder := psql.Select(projectColumns...).
		From("projects").
		OrderBy("id")

	if skill != "" {
		owners, args, err := psql.Select("profile_id").
			From("skills").
			Where(sq.Expr("lower(name) = lower(?)", skill)).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("sqlite: building skill filter: %w", err)
		}
		builder = builder.Where("profile_id IN ("+owners+")", args...)
	}

	return selectProjects(ctx, db.conn, builder)
}

// TopSkills counts skill rows per stored name. Grouping is on the literal
// value, so "Go" and "go" are separate entries. Equal counts are ordered by
// whichever name was stored first.
func (db *DB) TopSkills(ctx context.Context, limit int) ([]model.SkillRank, error) {
	query, args, err := psql.Select("name", "COUNT(id) AS occurrences").
		From("skills").
		GroupBy("name").
		OrderBy("occurrences DESC", "MIN(id) ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building top skills query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying top skills: %w", err)
	}
	defer rows.Close()

	ranks := make([]model.SkillRank, 0, min(limit, 64))
	for rows.Next() {
		r := model.SkillRank{Rank: len(ranks) + 1}
		if err := rows.Scan(&r.Name, &r.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning top skill row: %w", err)
		}
		ranks = append(ranks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating top skills: %w", err)
	}
	return ranks, nil
}

// Search returns every profile whose name, or the title or description of
// any of its projects, contains q ignoring case. Projects are LEFT JOINed so
// profiles without projects still match on name; DISTINCT collapses a
// profile matched through several projects into one row.
func (db *DB) Search(ctx context.Context, q string) ([]model.Profile, error) {
	pattern := "%" + escapeLike(q) + "%"

	columns := strings.Split(profileColumns, ", ")
	for i := range columns {
		columns[i] = "pr." + columns[i]
	}

	query, args, err := psql.Select(columns...).
		Distinct().
		From("profiles pr").
		LeftJoin("projects pj ON pj.profile_id = pr.id").
		Where(sq.Or{
			likeIgnoreCase("pr.name", pattern),
			likeIgnoreCase("pj.title", pattern),
			likeIgnoreCase("pj.description", pattern),
		}).
		OrderBy("pr.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building search query: %w", err)
	}

	var profiles []model.Profile
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("sqlite: searching profiles: %w", err)
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

// likeIgnoreCase lowers both sides with SQLite's lower() so the column and
// the pattern are folded by the same rules.
func likeIgnoreCase(column, pattern string) sq.Sqlizer {
	return sq.Expr("lower("+column+") LIKE lower(?) ESCAPE '\\'", pattern)
}

// escapeLike makes %, _ and the escape character itself match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
