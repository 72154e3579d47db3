package identity

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school"
	schoolentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// ResolveMembershipNames maps teacher ids to names, ordered by teacher id.
// Ids with no teacher behind them are dropped without error.
func (o *Orchestrator) ResolveMembershipNames(ctx context.Context, ids []string) ([]string, error) {
	teachers, err := o.teachers.ListByIDs(ctx, schoolentity.NormalizeIDs(ids))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(teachers))
	for _, t := range teachers {
		names = append(names, t.DisplayName())
	}
	return names, nil
}

// teacherNames resolves the union of several id sets in one query.
func (o *Orchestrator) teacherNames(ctx context.Context, sets ...[]string) (map[string]string, error) {
	var all []string
	for _, s := range sets {
		all = append(all, s...)
	}
	teachers, err := o.teachers.ListByIDs(ctx, schoolentity.NormalizeIDs(all))
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(teachers))
	for _, t := range teachers {
		m[t.ID] = t.DisplayName()
	}
	return m, nil
}

// namesOf keeps the order of ids, which are stored sorted.
func namesOf(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (o *Orchestrator) ClassView(ctx context.Context, c *schoolentity.SchoolClass) (*ClassView, error) {
	names, err := o.ResolveMembershipNames(ctx, c.TeacherIDs)
	if err != nil {
		return nil, err
	}
	return classView(c, names), nil
}

func (o *Orchestrator) SubjectView(ctx context.Context, s *schoolentity.SchoolSubject) (*SubjectView, error) {
	names, err := o.ResolveMembershipNames(ctx, s.TeacherIDs)
	if err != nil {
		return nil, err
	}
	return subjectView(s, names), nil
}

func (o *Orchestrator) CreateClass(ctx context.Context, in school.ClassInput) (*ClassView, error) {
	c, err := o.school.CreateClass(ctx, in)
	if err != nil {
		return nil, err
	}
	return o.ClassView(ctx, c)
}

func (o *Orchestrator) GetClass(ctx context.Context, id string) (*ClassView, error) {
	c, err := o.school.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.ClassView(ctx, c)
}

func (o *Orchestrator) ListClasses(ctx context.Context) ([]*ClassView, error) {
	classes, err := o.school.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	sets := make([][]string, len(classes))
	for i, c := range classes {
		sets[i] = c.TeacherIDs
	}
	names, err := o.teacherNames(ctx, sets...)
	if err != nil {
		return nil, err
	}
	out := make([]*ClassView, 0, len(classes))
	for _, c := range classes {
		out = append(out, classView(c, namesOf(c.TeacherIDs, names)))
	}
	return out, nil
}

func (o *Orchestrator) UpdateClass(ctx context.Context, id string, p school.ClassPatch) (*ClassView, error) {
	c, err := o.school.UpdateClass(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return o.ClassView(ctx, c)
}

func (o *Orchestrator) DeleteClass(ctx context.Context, id string) error {
	return o.school.DeleteClass(ctx, id)
}

func (o *Orchestrator) CreateSubject(ctx context.Context, in school.SubjectInput) (*SubjectView, error) {
	s, err := o.school.CreateSubject(ctx, in)
	if err != nil {
		return nil, err
	}
	return o.SubjectView(ctx, s)
}

func (o *Orchestrator) GetSubject(ctx context.Context, id string) (*SubjectView, error) {
	s, err := o.school.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.SubjectView(ctx, s)
}

func (o *Orchestrator) ListSubjects(ctx context.Context) ([]*SubjectView, error) {
	subjects, err := o.school.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	sets := make([][]string, len(subjects))
	for i, s := range subjects {
		sets[i] = s.TeacherIDs
	}
	names, err := o.teacherNames(ctx, sets...)
	if err != nil {
		return nil, err
	}
	out := make([]*SubjectView, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, subjectView(s, namesOf(s.TeacherIDs, names)))
	}
	return out, nil
}

func (o *Orchestrator) UpdateSubject(ctx context.Context, id string, p school.SubjectPatch) (*SubjectView, error) {
	s, err := o.school.UpdateSubject(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return o.SubjectView(ctx, s)
}

func (o *Orchestrator) DeleteSubject(ctx context.Context, id string) error {
	return o.school.DeleteSubject(ctx, id)
}
