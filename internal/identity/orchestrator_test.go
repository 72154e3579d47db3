package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account"
	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/dbtest"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school"
	schoolrepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/school/repo"
)

type fixture struct {
	db       *sqlx.DB
	o        *Orchestrator
	accounts *account.Service
	teachers *profile.TeacherStore
	school   *school.Service
}

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)

	ar := accountrepo.NewAccountRepo(db)
	adr := profilerepo.NewAdminRepo(db)
	tr := profilerepo.NewTeacherRepo(db)
	sr := profilerepo.NewStudentRepo(db)
	cr := schoolrepo.NewClassRepo(db)
	subr := schoolrepo.NewSubjectRepo(db)
	require.NoError(t, ar.EnsureTable(ctx))
	require.NoError(t, adr.EnsureTable(ctx))
	require.NoError(t, tr.EnsureTable(ctx))
	require.NoError(t, sr.EnsureTable(ctx))
	require.NoError(t, cr.EnsureTable(ctx))
	require.NoError(t, subr.EnsureTable(ctx))

	f := &fixture{
		db:       db,
		accounts: account.NewService(ar, account.BcryptHasher{Cost: bcrypt.MinCost}, nil),
		teachers: profile.NewTeacherStore(tr, nil),
		school:   school.NewService(cr, subr, nil),
	}
	f.o = New(f.accounts, profile.NewAdminStore(adr, nil), f.teachers, profile.NewStudentStore(sr, nil), f.school, nil,
		WithClock(func() time.Time { return fixedNow }))
	return f
}

func teacherReq(username, name string) TeacherRequest {
	return TeacherRequest{Credentials: Credentials{Username: username, Password: "pw-" + username}, Name: name}
}

func (f *fixture) class(t *testing.T, name string) string {
	t.Helper()
	c, err := f.school.CreateClass(context.Background(), school.ClassInput{Name: name, Grade: "SECOND_YEAR", Course: "MAT", Shift: "AFTERNOON"})
	require.NoError(t, err)
	return c.ID
}

func TestRegister_LinksProfileToAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.o.RegisterAdmin(ctx, AdminRequest{Credentials: Credentials{Username: "root", Password: "toor"}, Name: "Root"})
	require.NoError(t, err)
	teacher, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	student, err := f.o.RegisterStudent(ctx, StudentRequest{
		Credentials:   Credentials{Username: "carol", Password: "pw"},
		Name:          "Carol",
		SchoolClassID: f.class(t, "2M"),
		Birthdate:     "2008-02-29",
	})
	require.NoError(t, err)
	assert.Equal(t, "2008-02-29", student.Birthdate)

	cases := []struct {
		username string
		role     accountentity.Role
	}{
		{admin.Username, accountentity.RoleAdmin},
		{teacher.Username, accountentity.RoleTeacher},
		{student.Username, accountentity.RoleStudent},
	}
	for _, c := range cases {
		acc, err := f.accounts.GetByUsername(ctx, c.username)
		require.NoError(t, err)
		assert.Equal(t, c.role, acc.Role)
	}

	p, err := f.teachers.GetByID(ctx, teacher.ID)
	require.NoError(t, err)
	acc, err := f.accounts.GetByID(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.NotEqual(t, "pw-alice", acc.PasswordHash)
}

func TestRegister_DuplicateUsernameCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)

	_, err = f.o.RegisterTeacher(ctx, teacherReq("alice", "Other Alice"))
	require.ErrorIs(t, err, apperr.ErrDuplicateUsername)

	teachers, err := f.o.ListTeachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Alice", teachers[0].Name)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.RegisterTeacher(ctx, TeacherRequest{Credentials: Credentials{Username: "x", Password: "y"}, Name: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.o.RegisterAdmin(ctx, AdminRequest{Credentials: Credentials{Username: "x"}, Name: "X"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	_, err = f.o.RegisterAdmin(ctx, AdminRequest{Credentials: Credentials{Username: "x", Password: "y"}, Name: "X", Email: "nope"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	all, err := f.accounts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegister_ProfileFailureRemovesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.db.MustExec(`DROP TABLE admins`)

	_, err := f.o.RegisterAdmin(ctx, AdminRequest{Credentials: Credentials{Username: "root", Password: "toor"}, Name: "Root"})
	require.Error(t, err)

	_, err = f.accounts.GetByUsername(ctx, "root")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegisterStudent_UnknownClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.RegisterStudent(ctx, StudentRequest{
		Credentials:   Credentials{Username: "carol", Password: "pw"},
		Name:          "Carol",
		SchoolClassID: "missing",
	})
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "school_class", nf.Kind)

	_, err = f.accounts.GetByUsername(ctx, "carol")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeregisterAdmin_RemovesProfileAndAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterAdmin(ctx, AdminRequest{Credentials: Credentials{Username: "root", Password: "toor"}, Name: "Root"})
	require.NoError(t, err)
	acc, err := f.accounts.GetByUsername(ctx, "root")
	require.NoError(t, err)

	require.NoError(t, f.o.DeregisterAdmin(ctx, v.ID))

	_, err = f.o.GetAdmin(ctx, v.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.accounts.GetByID(ctx, acc.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.ErrorIs(t, f.o.DeregisterAdmin(ctx, v.ID), apperr.ErrNotFound)
}

func TestMembershipNames_DropDeletedTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	math, err := f.o.CreateSubject(ctx, school.SubjectInput{Name: "Math", TeacherIDs: []string{alice.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, math.TeacherNames)

	names, err := f.o.ResolveMembershipNames(ctx, []string{alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names)

	require.NoError(t, f.o.DeregisterTeacher(ctx, alice.ID))

	names, err = f.o.ResolveMembershipNames(ctx, []string{alice.ID})
	require.NoError(t, err)
	assert.Empty(t, names)

	view, err := f.o.GetSubject(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, view.TeacherIDs)
	assert.Empty(t, view.TeacherNames)
}

func TestMembershipNames_MixedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	bob, err := f.o.RegisterTeacher(ctx, teacherReq("bob", "Bob"))
	require.NoError(t, err)

	ids := []string{bob.ID, "ghost", alice.ID, alice.ID}
	names, err := f.o.ResolveMembershipNames(ctx, ids)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(names), len(ids))
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, names)

	classID := f.class(t, "1A")
	_, err = f.o.UpdateClass(ctx, classID, school.ClassPatch{TeacherIDs: ids})
	require.NoError(t, err)
	classes, err := f.o.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, classes[0].TeacherNames)
	assert.Len(t, classes[0].TeacherIDs, 3)
}

func TestUpdateTeacher_ForwardsCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterTeacher(ctx, TeacherRequest{
		Credentials: Credentials{Username: "alice", Password: "old"},
		Name:        "Alice", Email: "alice@school.test", CPF: "111", Phone: "555",
	})
	require.NoError(t, err)

	updated, err := f.o.UpdateTeacher(ctx, v.ID, TeacherUpdate{
		CredentialsPatch: CredentialsPatch{Username: "alice.s", Password: "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice.s", updated.Username)
	assert.Equal(t, v.Name, updated.Name)
	assert.Equal(t, v.Email, updated.Email)
	assert.Equal(t, v.CPF, updated.CPF)
	assert.Equal(t, v.Phone, updated.Phone)

	_, err = f.accounts.Authenticate(ctx, "alice.s", "new")
	require.NoError(t, err)
	_, err = f.accounts.Authenticate(ctx, "alice", "old")
	require.ErrorIs(t, err, apperr.ErrBadCredentials)
}

func TestUpdateTeacher_SingleFieldLeavesRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterTeacher(ctx, TeacherRequest{
		Credentials: Credentials{Username: "alice", Password: "pw"},
		Name:        "Alice", Email: "alice@school.test", CPF: "111", Phone: "555",
	})
	require.NoError(t, err)
	before, err := f.teachers.GetByID(ctx, v.ID)
	require.NoError(t, err)
	beforeAcc, err := f.accounts.GetByID(ctx, before.AccountID)
	require.NoError(t, err)

	_, err = f.o.UpdateTeacher(ctx, v.ID, TeacherUpdate{TeacherPatch: profile.TeacherPatch{CPF: "222"}})
	require.NoError(t, err)

	after, err := f.teachers.GetByID(ctx, v.ID)
	require.NoError(t, err)
	want := *before
	want.CPF = "222"
	assert.Equal(t, want, *after)

	afterAcc, err := f.accounts.GetByID(ctx, after.AccountID)
	require.NoError(t, err)
	assert.Equal(t, beforeAcc.Username, afterAcc.Username)
	assert.Equal(t, beforeAcc.PasswordHash, afterAcc.PasswordHash)
}

func TestUpdate_ProfileFailureKeepsCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = update(ctx, f.o, f.teachers, v.ID, CredentialsPatch{Username: "alice.s", Password: "new"}, func(*entity.Teacher) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = f.accounts.GetByUsername(ctx, "alice.s")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.accounts.Authenticate(ctx, "alice", "pw-alice")
	require.NoError(t, err)
}

func TestUpdate_TakenUsernameKeepsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	_, err = f.o.RegisterTeacher(ctx, teacherReq("bob", "Bob"))
	require.NoError(t, err)

	_, err = f.o.UpdateTeacher(ctx, v.ID, TeacherUpdate{
		CredentialsPatch: CredentialsPatch{Username: "bob"},
		TeacherPatch:     profile.TeacherPatch{Name: "Alicia"},
	})
	require.ErrorIs(t, err, apperr.ErrDuplicateUsername)

	p, err := f.teachers.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.class(t, "1A")
	second := f.class(t, "2A")
	v, err := f.o.RegisterStudent(ctx, StudentRequest{
		Credentials:   Credentials{Username: "carol", Password: "pw"},
		Name:          "Carol",
		SchoolClassID: first,
		Birthdate:     "2008-01-01",
	})
	require.NoError(t, err)

	missing := "missing"
	_, err = f.o.UpdateStudent(ctx, v.ID, StudentUpdate{StudentPatch: profile.StudentPatch{Name: "X", SchoolClassID: &missing}})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.o.UpdateStudent(ctx, v.ID, StudentUpdate{StudentPatch: profile.StudentPatch{Birthdate: "01/01/2008"}})
	require.ErrorIs(t, err, apperr.ErrValidation)

	present := true
	updated, err := f.o.UpdateStudent(ctx, v.ID, StudentUpdate{StudentPatch: profile.StudentPatch{
		SchoolClassID: &second,
		Birthdate:     fixedNow.Format(profile.DateLayout),
		InSchool:      &present,
	}})
	require.NoError(t, err)
	assert.Equal(t, "Carol", updated.Name)
	assert.Equal(t, second, updated.SchoolClassID)
	assert.Equal(t, "2008-01-01", updated.Birthdate)
	assert.True(t, updated.InSchool)
}

func TestResolveView_MissingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	p, err := f.teachers.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.NoError(t, f.accounts.Delete(ctx, p.AccountID))

	_, err = f.o.ResolveTeacherView(ctx, p)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "account", nf.Kind)
	assert.Equal(t, p.AccountID, nf.Key)

	list, err := f.o.ListTeachers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.o.RegisterTeacher(ctx, teacherReq("alice", "Alice"))
	require.NoError(t, err)
	bob, err := f.o.RegisterTeacher(ctx, teacherReq("bob", "Bob"))
	require.NoError(t, err)
	classID := f.class(t, "1A")
	_, err = f.o.UpdateClass(ctx, classID, school.ClassPatch{TeacherIDs: []string{alice.ID, bob.ID}})
	require.NoError(t, err)
	_, err = f.o.CreateSubject(ctx, school.SubjectInput{Name: "Math", TeacherIDs: []string{bob.ID}})
	require.NoError(t, err)

	require.NoError(t, f.o.DeregisterTeacher(ctx, bob.ID))
	stray, err := f.accounts.Create(ctx, "stray", "pw", accountentity.RoleAdmin)
	require.NoError(t, err)
	_, err = f.teachers.Create(ctx, &entity.Teacher{AccountID: "gone", Name: "Ghost"})
	require.NoError(t, err)

	rep, err := f.o.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	assert.Equal(t, []string{stray.ID}, rep.AccountsWithoutProfile)
	require.Len(t, rep.ProfilesWithoutAccount, 1)
	assert.Equal(t, "gone", rep.ProfilesWithoutAccount[0].AccountID)
	assert.Equal(t, "teacher", rep.ProfilesWithoutAccount[0].Kind)
	require.Len(t, rep.DanglingClassMembers, 1)
	assert.Equal(t, bob.ID, rep.DanglingClassMembers[0].TeacherID)
	require.Len(t, rep.DanglingSubjectMembers, 1)
	assert.Zero(t, rep.Pruned)

	rep, err = f.o.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Pruned)

	rep, err = f.o.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, rep.DanglingClassMembers)
	assert.Empty(t, rep.DanglingSubjectMembers)
	assert.Len(t, rep.AccountsWithoutProfile, 1)

	class, err := f.o.GetClass(ctx, classID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, class.TeacherIDs)
}

func TestReconcile_StudentWithoutClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	classID := f.class(t, "3B")
	v, err := f.o.RegisterStudent(ctx, StudentRequest{
		Credentials:   Credentials{Username: "erin", Password: "pw"},
		Name:          "Erin",
		SchoolClassID: classID,
	})
	require.NoError(t, err)

	rep, err := f.o.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.True(t, rep.Clean())

	require.NoError(t, f.o.DeleteClass(ctx, classID))
	rep, err = f.o.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	require.Len(t, rep.StudentsWithoutClass, 1)
	assert.Equal(t, v.ID, rep.StudentsWithoutClass[0].ID)
	assert.Equal(t, "student", rep.StudentsWithoutClass[0].Kind)
}

func TestBootstrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.o.Bootstrap(ctx, "", "x")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.o.Bootstrap(ctx, "admin", "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	created, err = f.o.Bootstrap(ctx, "admin", "admin-pw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.o.Bootstrap(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)

	admins, err := f.o.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	_, err = f.accounts.Authenticate(ctx, "admin", "admin-pw")
	require.NoError(t, err)
}

func TestBootstrap_NameHeldByNonAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.RegisterTeacher(ctx, teacherReq("admin", "Not An Admin"))
	require.NoError(t, err)

	created, err := f.o.Bootstrap(ctx, "admin", "admin-pw")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.False(t, created)

	admins, err := f.o.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Empty(t, admins)
}
