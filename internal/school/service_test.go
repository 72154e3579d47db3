package school

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/dbtest"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/repo"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := dbtest.Open(t)
	classes := repo.NewClassRepo(db)
	subjects := repo.NewSubjectRepo(db)
	ctx := context.Background()
	require.NoError(t, classes.EnsureTable(ctx))
	require.NoError(t, subjects.EnsureTable(ctx))
	return NewService(classes, subjects, nil)
}

func validClass(name string) ClassInput {
	return ClassInput{Name: name, Grade: "FIRST_YEAR", Course: "DS", Shift: "MORNING"}
}

func TestCreateClass_PersistsEnumsAndTeachers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validClass("1A")
	in.TeacherIDs = []string{"t2", "t1", "t2", " "}
	c, err := svc.CreateClass(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, entity.GradeFirstYear, c.Grade)
	assert.Equal(t, entity.CourseDS, c.Course)
	assert.Equal(t, entity.ShiftMorning, c.Shift)

	got, err := svc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "1A", got.Name)
	assert.Equal(t, []string{"t1", "t2"}, got.TeacherIDs)
}

func TestCreateClass_RejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    ClassInput
		field string
	}{
		{"missing name", ClassInput{Grade: "FIRST_YEAR", Course: "DS", Shift: "MORNING"}, "name"},
		{"bad grade", ClassInput{Name: "x", Grade: "FOURTH_YEAR", Course: "DS", Shift: "MORNING"}, "grade"},
		{"bad course", ClassInput{Name: "x", Grade: "FIRST_YEAR", Course: "ds", Shift: "MORNING"}, "course"},
		{"bad shift", ClassInput{Name: "x", Grade: "FIRST_YEAR", Course: "DS", Shift: "EVENING"}, "shift"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateClass(ctx, tt.in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	all, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateClass_InvalidEnumIsReachable(t *testing.T) {
	svc := newTestService(t)
	in := validClass("x")
	in.Shift = "EVENING"

	_, err := svc.CreateClass(context.Background(), in)
	var enumErr *apperr.InvalidEnumValueError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "EVENING", enumErr.Value)
}

func TestCreateClass_DuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateClass(ctx, validClass("1A"))
	require.NoError(t, err)
	_, err = svc.CreateClass(ctx, validClass("1A"))
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateClass_NilTeachersKeepsSet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validClass("1A")
	in.TeacherIDs = []string{"t1"}
	c, err := svc.CreateClass(ctx, in)
	require.NoError(t, err)

	updated, err := svc.UpdateClass(ctx, c.ID, ClassPatch{Shift: "NIGHT"})
	require.NoError(t, err)
	assert.Equal(t, entity.ShiftNight, updated.Shift)
	assert.Equal(t, "1A", updated.Name)
	assert.Equal(t, []string{"t1"}, updated.TeacherIDs)

	updated, err = svc.UpdateClass(ctx, c.ID, ClassPatch{TeacherIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.TeacherIDs)

	got, err := svc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TeacherIDs)
	assert.Equal(t, entity.ShiftNight, got.Shift)
}

func TestUpdateClass_BadEnumLeavesRowUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateClass(ctx, validClass("1A"))
	require.NoError(t, err)

	_, err = svc.UpdateClass(ctx, c.ID, ClassPatch{Name: "2B", Grade: "NOPE"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := svc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "1A", got.Name)
	assert.Equal(t, entity.GradeFirstYear, got.Grade)
}

func TestClass_NotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetClass(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.UpdateClass(ctx, "missing", ClassPatch{Name: "x"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, svc.DeleteClass(ctx, "missing"), apperr.ErrNotFound)
}

func TestListClassesByIDs_SkipsUnknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateClass(ctx, validClass("1A"))
	require.NoError(t, err)
	b, err := svc.CreateClass(ctx, validClass("1B"))
	require.NoError(t, err)

	got, err := svc.ListClassesByIDs(ctx, []string{b.ID, "ghost", a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)

	none, err := svc.ListClassesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubject_Lifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubject(ctx, SubjectInput{Name: "Math", TeacherIDs: []string{"t1"}})
	require.NoError(t, err)

	_, err = svc.CreateSubject(ctx, SubjectInput{Name: "   "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.UpdateSubject(ctx, sub.ID, SubjectPatch{TeacherIDs: []string{"t1", "t3"}})
	require.NoError(t, err)
	assert.Equal(t, "Math", updated.Name)
	assert.Equal(t, []string{"t1", "t3"}, updated.TeacherIDs)

	list, err := svc.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"t1", "t3"}, list[0].TeacherIDs)

	require.NoError(t, svc.DeleteSubject(ctx, sub.ID))
	_, err = svc.GetSubject(ctx, sub.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, subjects, err := svc.Memberships(ctx)
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestRemoveTeachers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := validClass("1A")
	in.TeacherIDs = []string{"t1", "t2"}
	c, err := svc.CreateClass(ctx, in)
	require.NoError(t, err)
	sub, err := svc.CreateSubject(ctx, SubjectInput{Name: "Math", TeacherIDs: []string{"t2"}})
	require.NoError(t, err)

	n, err := svc.RemoveTeachers(ctx, []string{"t2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	gotClass, err := svc.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, gotClass.TeacherIDs)
	gotSub, err := svc.GetSubject(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, gotSub.TeacherIDs)
}
