package identity

import (
	"context"
	"slices"
	"strings"

	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
	schoolentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// ProfileRef names one profile row.
type ProfileRef struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
}

// Report lists the cross-store links that do not hold.
type Report struct {
	AccountsWithoutProfile []string                  `json:"accountsWithoutProfile"`
	ProfilesWithoutAccount []ProfileRef              `json:"profilesWithoutAccount"`
	DanglingClassMembers   []schoolentity.Membership `json:"danglingClassMembers"`
	DanglingSubjectMembers []schoolentity.Membership `json:"danglingSubjectMembers"`
	StudentsWithoutClass   []ProfileRef              `json:"studentsWithoutClass"`
	Pruned                 int64                     `json:"pruned"`
}

// Clean reports whether nothing was found.
func (r *Report) Clean() bool {
	return len(r.AccountsWithoutProfile) == 0 && len(r.ProfilesWithoutAccount) == 0 &&
		len(r.DanglingClassMembers) == 0 && len(r.DanglingSubjectMembers) == 0 &&
		len(r.StudentsWithoutClass) == 0
}

// collect appends every profile of store to refs and marks its account id.
func collect[E any, P profile.Record[E]](ctx context.Context, store *profile.Store[E, P], refs []ProfileRef, seen map[string]struct{}) ([]ProfileRef, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		refs = append(refs, ProfileRef{Kind: store.Kind(), ID: p.GetID(), AccountID: p.GetAccountID()})
		seen[p.GetAccountID()] = struct{}{}
	}
	return refs, nil
}

// Reconcile walks every store and reports broken links. With prune set it
// removes dangling teacher ids from membership sets; accounts and profiles
// are only ever reported.
func (o *Orchestrator) Reconcile(ctx context.Context, prune bool) (*Report, error) {
	accounts, err := o.accountsByID(ctx)
	if err != nil {
		return nil, err
	}

	linked := make(map[string]struct{}, len(accounts))
	var refs []ProfileRef
	if refs, err = collect(ctx, o.admins, refs, linked); err != nil {
		return nil, err
	}
	teacherStart := len(refs)
	if refs, err = collect(ctx, o.teachers, refs, linked); err != nil {
		return nil, err
	}
	teacherEnd := len(refs)
	if refs, err = collect(ctx, o.students, refs, linked); err != nil {
		return nil, err
	}

	rep := &Report{
		AccountsWithoutProfile: []string{},
		ProfilesWithoutAccount: []ProfileRef{},
		DanglingClassMembers:   []schoolentity.Membership{},
		DanglingSubjectMembers: []schoolentity.Membership{},
		StudentsWithoutClass:   []ProfileRef{},
	}
	for _, a := range sortedAccounts(accounts) {
		if _, ok := linked[a.ID]; !ok {
			rep.AccountsWithoutProfile = append(rep.AccountsWithoutProfile, a.ID)
		}
	}
	for _, ref := range refs {
		if _, ok := accounts[ref.AccountID]; !ok {
			rep.ProfilesWithoutAccount = append(rep.ProfilesWithoutAccount, ref)
		}
	}

	teachers := make(map[string]struct{}, teacherEnd-teacherStart)
	for _, ref := range refs[teacherStart:teacherEnd] {
		teachers[ref.ID] = struct{}{}
	}
	classes, subjects, err := o.school.Memberships(ctx)
	if err != nil {
		return nil, err
	}
	dangling := map[string]struct{}{}
	for _, m := range classes {
		if _, ok := teachers[m.TeacherID]; !ok {
			rep.DanglingClassMembers = append(rep.DanglingClassMembers, m)
			dangling[m.TeacherID] = struct{}{}
		}
	}
	for _, m := range subjects {
		if _, ok := teachers[m.TeacherID]; !ok {
			rep.DanglingSubjectMembers = append(rep.DanglingSubjectMembers, m)
			dangling[m.TeacherID] = struct{}{}
		}
	}

	if rep.StudentsWithoutClass, err = o.studentsWithoutClass(ctx); err != nil {
		return nil, err
	}

	if prune && len(dangling) > 0 {
		ids := make([]string, 0, len(dangling))
		for id := range dangling {
			ids = append(ids, id)
		}
		if rep.Pruned, err = o.school.RemoveTeachers(ctx, ids); err != nil {
			return rep, err
		}
		o.logger.Infow("pruned dangling memberships", "teachers", len(ids), "rows", rep.Pruned)
	}
	o.logger.Infow("reconcile finished",
		"accounts_without_profile", len(rep.AccountsWithoutProfile),
		"profiles_without_account", len(rep.ProfilesWithoutAccount),
		"dangling_class_members", len(rep.DanglingClassMembers),
		"dangling_subject_members", len(rep.DanglingSubjectMembers),
		"students_without_class", len(rep.StudentsWithoutClass))
	return rep, nil
}

// studentsWithoutClass lists students whose class id names no class.
func (o *Orchestrator) studentsWithoutClass(ctx context.Context) ([]ProfileRef, error) {
	students, err := o.students.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.SchoolClassID)
	}
	classes, err := o.school.ListClassesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		known[c.ID] = struct{}{}
	}
	out := []ProfileRef{}
	for _, s := range students {
		if _, ok := known[s.SchoolClassID]; !ok {
			out = append(out, ProfileRef{Kind: o.students.Kind(), ID: s.ID, AccountID: s.AccountID})
		}
	}
	return out, nil
}

func sortedAccounts(m map[string]*accountentity.Account) []*accountentity.Account {
	out := make([]*accountentity.Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *accountentity.Account) int { return strings.Compare(a.ID, b.ID) })
	return out
}
