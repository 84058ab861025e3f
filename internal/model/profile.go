// Package model defines the data structures used throughout the application.
//
// A Profile is the root record. Skills, projects and work entries belong to
// exactly one profile and have no life of their own: they are created with
// the profile, replaced wholesale on update and removed when it is deleted.
//
// Optional text columns are *string so that "not provided" round-trips as
// JSON null instead of collapsing into an empty string.
package model

import "time"

// Profile is one person's portfolio record together with its children.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Education *string   `json:"education"`
	GitHub    *string   `json:"github"`
	LinkedIn  *string   `json:"linkedin"`
	Portfolio *string   `json:"portfolio"`
	Skills    []Skill   `json:"skills"`
	Projects  []Project `json:"projects"`
	Work      []Work    `json:"work"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Skill struct {
	ID        int64  `json:"id"`
	ProfileID int64  `json:"profileId"`
	Name      string `json:"name"`
}

type Project struct {
	ID          int64   `json:"id"`
	ProfileID   int64   `json:"profileId"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Link        *string `json:"link"`
}

// Work is one entry of employment history. Duration is free text
// ("6 months", "2021 - present"), not a parsed date range.
type Work struct {
	ID        int64   `json:"id"`
	ProfileID int64   `json:"profileId"`
	Company   string  `json:"company"`
	Role      *string `json:"role"`
	Duration  *string `json:"duration"`
}

// SkillRank is one row of the top-skills aggregation. Rank is the 1-based
// position in the result, not a stored skill id; it is serialised as "id"
// to keep the response shape existing clients already read.
type SkillRank struct {
	Rank  int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ProfileInput is the payload accepted by create and update. Update is a
// full overwrite, so an omitted optional field clears the stored value and
// an omitted list clears that collection.
type ProfileInput struct {
	Name      string         `json:"name"      validate:"required,max=200"`
	Email     string         `json:"email"     validate:"required,max=320"`
	Education *string        `json:"education"`
	GitHub    *string        `json:"github"`
	LinkedIn  *string        `json:"linkedin"`
	Portfolio *string        `json:"portfolio"`
	Skills    []SkillInput   `json:"skills"    validate:"dive"`
	Projects  []ProjectInput `json:"projects"  validate:"dive"`
	Work      []WorkInput    `json:"work"      validate:"dive"`
}

type SkillInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type ProjectInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	Link        *string `json:"link"`
}

type WorkInput struct {
	Company  string  `json:"company" validate:"required,max=200"`
	Role     *string `json:"role"`
	Duration *string `json:"duration"`
}

// ToProfile builds an unsaved Profile (all ids zero) from the payload,
// keeping children in submission order.
func (in ProfileInput) ToProfile() *Profile {
	p := &Profile{
		Name:      in.Name,
		Email:     in.Email,
		Education: in.Education,
		GitHub:    in.GitHub,
		LinkedIn:  in.LinkedIn,
		Portfolio: in.Portfolio,
		Skills:    make([]Skill, 0, len(in.Skills)),
		Projects:  make([]Project, 0, len(in.Projects)),
		Work:      make([]Work, 0, len(in.Work)),
	}
	for _, s := range in.Skills {
		p.Skills = append(p.Skills, Skill{Name: s.Name})
	}
	for _, pr := range in.Projects {
		p.Projects = append(p.Projects, Project{
			Title:       pr.Title,
			Description: pr.Description,
			Link:        pr.Link,
		})
	}
	for _, w := range in.Work {
		p.Work = append(p.Work, Work{
			Company:  w.Company,
			Role:     w.Role,
			Duration: w.Duration,
		})
	}
	return p
}
