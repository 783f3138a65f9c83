package filter

import (
	"context"
	"testing"

	"github.com/hitoshi/fritter/internal/model"
)

// --- モック ---

type mockFilterRepo struct {
	createFn             func(ctx context.Context, filter *model.Filter) error
	findByIDFn           func(ctx context.Context, id string) (*model.Filter, error)
	findByOwnerAndNameFn func(ctx context.Context, ownerID, name string) (*model.Filter, error)
	findViewByIDFn       func(ctx context.Context, id string) (*model.FilterView, error)
	listViewsByOwnerFn   func(ctx context.Context, ownerID string) ([]model.FilterView, error)
	updateFn             func(ctx context.Context, filter *model.Filter) error
	deleteByIDFn         func(ctx context.Context, id string) error
}

func (m *mockFilterRepo) Create(ctx context.Context, filter *model.Filter) error {
	return m.createFn(ctx, filter)
}
func (m *mockFilterRepo) FindByID(ctx context.Context, id string) (*model.Filter, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockFilterRepo) FindByOwnerAndName(ctx context.Context, ownerID, name string) (*model.Filter, error) {
	return m.findByOwnerAndNameFn(ctx, ownerID, name)
}
func (m *mockFilterRepo) FindViewByID(ctx context.Context, id string) (*model.FilterView, error) {
	return m.findViewByIDFn(ctx, id)
}
func (m *mockFilterRepo) ListViewsByOwner(ctx context.Context, ownerID string) ([]model.FilterView, error) {
	return m.listViewsByOwnerFn(ctx, ownerID)
}
func (m *mockFilterRepo) Update(ctx context.Context, filter *model.Filter) error {
	return m.updateFn(ctx, filter)
}
func (m *mockFilterRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}
func (m *mockFilterRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	return nil
}
func (m *mockFilterRepo) RemoveUserFromAll(ctx context.Context, userID string) error {
	return nil
}

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.findByUsernameFn(ctx, username)
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

type mockTagResolver struct {
	findOrCreateManyFn func(ctx context.Context, names []string) ([]model.Tag, error)
}

func (m *mockTagResolver) FindOrCreateMany(ctx context.Context, names []string) ([]model.Tag, error) {
	if m.findOrCreateManyFn != nil {
		return m.findOrCreateManyFn(ctx, names)
	}
	return nil, nil
}

type mockFreetFilterer struct {
	filterFn func(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error)
}

func (m *mockFreetFilterer) FilterByAuthorsOrTags(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error) {
	return m.filterFn(ctx, authorIDs, tagIDs)
}

// knownUsers はユーザー名→IDの固定マップでFindByUsernameを解決する。
func knownUsers(users map[string]string) *mockUserRepo {
	return &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if id, ok := users[username]; ok {
				return &model.User{ID: id, Username: username}, nil
			}
			return nil, nil
		},
	}
}

func tagsByName() *mockTagResolver {
	return &mockTagResolver{
		findOrCreateManyFn: func(ctx context.Context, names []string) ([]model.Tag, error) {
			tags := make([]model.Tag, len(names))
			for i, n := range names {
				tags[i] = model.Tag{ID: "tag-" + n, Name: n}
			}
			return tags, nil
		},
	}
}

// --- テスト ---

// TestService_Create はフィルタの作成を検証する。
func TestService_Create(t *testing.T) {
	var created *model.Filter
	filterRepo := &mockFilterRepo{
		createFn: func(ctx context.Context, filter *model.Filter) error {
			filter.ID = "filter-1"
			created = filter
			return nil
		},
		findViewByIDFn: func(ctx context.Context, id string) (*model.FilterView, error) {
			return &model.FilterView{
				Filter:    model.Filter{ID: id, Name: "tech"},
				Usernames: []string{"bob"},
				TagNames:  []string{"golang"},
			}, nil
		},
	}

	svc := NewService(filterRepo, knownUsers(map[string]string{"bob": "user-2"}), tagsByName(), &mockFreetFilterer{})

	view, err := svc.Create(context.Background(), "user-1", "tech", []string{"bob"}, []string{"golang"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected filter to be persisted")
	}
	if created.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, want %q", created.OwnerID, "user-1")
	}
	if len(created.UserIDs) != 1 || created.UserIDs[0] != "user-2" {
		t.Errorf("UserIDs = %v, want [user-2]", created.UserIDs)
	}
	if len(created.TagIDs) != 1 || created.TagIDs[0] != "tag-golang" {
		t.Errorf("TagIDs = %v, want [tag-golang]", created.TagIDs)
	}
	if view.Name != "tech" {
		t.Errorf("Name = %q, want %q", view.Name, "tech")
	}
}

// TestService_Create_InvalidName は不正なフィルタ名がINVALID_FILTER_NAMEになることを検証する。
func TestService_Create_InvalidName(t *testing.T) {
	svc := NewService(&mockFilterRepo{}, &mockUserRepo{}, &mockTagResolver{}, &mockFreetFilterer{})

	for _, name := range []string{"", "has space", "日本語"} {
		_, err := svc.Create(context.Background(), "user-1", name, nil, nil)
		apiErr, ok := model.AsAPIError(err)
		if !ok {
			t.Fatalf("name %q: expected APIError, got %v", name, err)
		}
		if apiErr.Code != model.ErrCodeInvalidFilterName {
			t.Errorf("name %q: Code = %q, want %q", name, apiErr.Code, model.ErrCodeInvalidFilterName)
		}
	}
}

// TestService_Create_UnknownUsername は未知のユーザー名でフィルタが作成されないことを検証する。
func TestService_Create_UnknownUsername(t *testing.T) {
	filterRepo := &mockFilterRepo{
		createFn: func(ctx context.Context, filter *model.Filter) error {
			t.Fatal("filter should not be persisted when username resolution fails")
			return nil
		},
	}
	svc := NewService(filterRepo, knownUsers(nil), tagsByName(), &mockFreetFilterer{})

	_, err := svc.Create(context.Background(), "user-1", "tech", []string{"nobody"}, nil)
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestService_Create_DuplicateName_PassesThroughConflict はリポジトリの
// DUPLICATE_FILTER_NAMEがそのまま伝播することを検証する。
func TestService_Create_DuplicateName_PassesThroughConflict(t *testing.T) {
	filterRepo := &mockFilterRepo{
		createFn: func(ctx context.Context, filter *model.Filter) error {
			return model.NewDuplicateFilterNameError(filter.Name)
		},
	}
	svc := NewService(filterRepo, knownUsers(nil), tagsByName(), &mockFreetFilterer{})

	_, err := svc.Create(context.Background(), "user-1", "tech", nil, nil)
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateFilterName {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateFilterName)
	}
}

// TestService_Update_ReplacesMembers は更新でユーザー・タグ集合が
// 全置換されることを検証する。
func TestService_Update_ReplacesMembers(t *testing.T) {
	var updated *model.Filter
	filterRepo := &mockFilterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Filter, error) {
			return &model.Filter{
				ID: id, OwnerID: "user-1", Name: "tech",
				UserIDs: []string{"user-2", "user-3"},
				TagIDs:  []string{"tag-old"},
			}, nil
		},
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			return nil, nil
		},
		updateFn: func(ctx context.Context, filter *model.Filter) error {
			updated = filter
			return nil
		},
		findViewByIDFn: func(ctx context.Context, id string) (*model.FilterView, error) {
			return &model.FilterView{Filter: model.Filter{ID: id, Name: "news"}}, nil
		},
	}

	svc := NewService(filterRepo, knownUsers(map[string]string{"carol": "user-4"}), tagsByName(), &mockFreetFilterer{})

	_, err := svc.Update(context.Background(), "user-1", "filter-1", "news", []string{"carol"}, []string{"golang"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected Update to be called")
	}
	if updated.Name != "news" {
		t.Errorf("Name = %q, want %q", updated.Name, "news")
	}
	if len(updated.UserIDs) != 1 || updated.UserIDs[0] != "user-4" {
		t.Errorf("UserIDs = %v, want full replacement [user-4]", updated.UserIDs)
	}
	if len(updated.TagIDs) != 1 || updated.TagIDs[0] != "tag-golang" {
		t.Errorf("TagIDs = %v, want full replacement [tag-golang]", updated.TagIDs)
	}
}

// TestService_Update_RenameToSameName_Allowed は同じ名前への「改名」が
// 衝突扱いにならないことを検証する。
func TestService_Update_RenameToSameName_Allowed(t *testing.T) {
	nameChecked := false
	filterRepo := &mockFilterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Filter, error) {
			return &model.Filter{ID: id, OwnerID: "user-1", Name: "tech"}, nil
		},
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			nameChecked = true
			return &model.Filter{ID: "filter-1", OwnerID: ownerID, Name: name}, nil
		},
		updateFn: func(ctx context.Context, filter *model.Filter) error {
			return nil
		},
		findViewByIDFn: func(ctx context.Context, id string) (*model.FilterView, error) {
			return &model.FilterView{Filter: model.Filter{ID: id, Name: "tech"}}, nil
		},
	}

	svc := NewService(filterRepo, knownUsers(nil), tagsByName(), &mockFreetFilterer{})

	_, err := svc.Update(context.Background(), "user-1", "filter-1", "tech", nil, nil)
	if err != nil {
		t.Fatalf("Update returned error for same-name rename: %v", err)
	}
	if nameChecked {
		t.Error("same-name rename should skip the duplicate-name check")
	}
}

// TestService_Update_RenameToTakenName_Conflict は別フィルタが使用中の
// 名前への改名がDUPLICATE_FILTER_NAMEになることを検証する。
func TestService_Update_RenameToTakenName_Conflict(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Filter, error) {
			return &model.Filter{ID: id, OwnerID: "user-1", Name: "tech"}, nil
		},
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			return &model.Filter{ID: "filter-other", OwnerID: ownerID, Name: name}, nil
		},
	}

	svc := NewService(filterRepo, knownUsers(nil), tagsByName(), &mockFreetFilterer{})

	_, err := svc.Update(context.Background(), "user-1", "filter-1", "news", nil, nil)
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateFilterName {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateFilterName)
	}
}

// TestService_Update_WrongOwner_Forbidden は他人のフィルタ更新が拒否されることを検証する。
func TestService_Update_WrongOwner_Forbidden(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Filter, error) {
			return &model.Filter{ID: id, OwnerID: "user-other", Name: "tech"}, nil
		},
	}
	svc := NewService(filterRepo, &mockUserRepo{}, &mockTagResolver{}, &mockFreetFilterer{})

	_, err := svc.Update(context.Background(), "user-1", "filter-1", "news", nil, nil)
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeForbidden)
	}
}

// TestService_Delete_WrongOwner_Forbidden は他人のフィルタ削除が拒否されることを検証する。
func TestService_Delete_WrongOwner_Forbidden(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Filter, error) {
			return &model.Filter{ID: id, OwnerID: "user-other"}, nil
		},
	}
	svc := NewService(filterRepo, &mockUserRepo{}, &mockTagResolver{}, &mockFreetFilterer{})

	err := svc.Delete(context.Background(), "user-1", "filter-1")
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeForbidden)
	}
}

// TestService_QueryByFilterName は保存フィルタの解決と絞り込み委譲を検証する。
func TestService_QueryByFilterName(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			return &model.Filter{
				ID: "filter-1", OwnerID: ownerID, Name: name,
				UserIDs: []string{"user-2"},
				TagIDs:  []string{"tag-1"},
			}, nil
		},
	}
	freets := &mockFreetFilterer{
		filterFn: func(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error) {
			if len(authorIDs) != 1 || authorIDs[0] != "user-2" {
				t.Errorf("authorIDs = %v, want [user-2]", authorIDs)
			}
			if len(tagIDs) != 1 || tagIDs[0] != "tag-1" {
				t.Errorf("tagIDs = %v, want [tag-1]", tagIDs)
			}
			return []model.FreetView{{Freet: model.Freet{ID: "freet-1"}}}, nil
		},
	}

	svc := NewService(filterRepo, &mockUserRepo{}, &mockTagResolver{}, freets)

	views, err := svc.QueryByFilterName(context.Background(), "user-1", "tech")
	if err != nil {
		t.Fatalf("QueryByFilterName returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 freet, got %d", len(views))
	}
}

// TestService_QueryByFilterName_NotFound は未知のフィルタ名のFILTER_NOT_FOUNDを検証する。
func TestService_QueryByFilterName_NotFound(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			return nil, nil
		},
	}
	svc := NewService(filterRepo, &mockUserRepo{}, &mockTagResolver{}, &mockFreetFilterer{})

	_, err := svc.QueryByFilterName(context.Background(), "user-1", "missing")
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeFilterNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeFilterNotFound)
	}
}

// TestService_QueryByLists は明示的なリストの解決と絞り込み委譲を検証する。
// usernamesとtagsは論理ORでFreetストアに渡される。
func TestService_QueryByLists(t *testing.T) {
	freets := &mockFreetFilterer{
		filterFn: func(ctx context.Context, authorIDs, tagIDs []string) ([]model.FreetView, error) {
			if len(authorIDs) != 1 || authorIDs[0] != "user-2" {
				t.Errorf("authorIDs = %v, want [user-2]", authorIDs)
			}
			if len(tagIDs) != 1 || tagIDs[0] != "tag-golang" {
				t.Errorf("tagIDs = %v, want [tag-golang]", tagIDs)
			}
			return nil, nil
		},
	}

	svc := NewService(&mockFilterRepo{}, knownUsers(map[string]string{"bob": "user-2"}), tagsByName(), freets)

	_, err := svc.QueryByLists(context.Background(), []string{"bob"}, []string{"golang"})
	if err != nil {
		t.Fatalf("QueryByLists returned error: %v", err)
	}
}

// TestService_QueryByLists_UnknownUsername は未知のユーザー名のUSER_NOT_FOUNDを検証する。
func TestService_QueryByLists_UnknownUsername(t *testing.T) {
	svc := NewService(&mockFilterRepo{}, knownUsers(nil), tagsByName(), &mockFreetFilterer{})

	_, err := svc.QueryByLists(context.Background(), []string{"nobody"}, nil)
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestService_GetByName はフィルタ名による取得を検証する。
func TestService_GetByName(t *testing.T) {
	filterRepo := &mockFilterRepo{
		findByOwnerAndNameFn: func(ctx context.Context, ownerID, name string) (*model.Filter, error) {
			return &model.Filter{ID: "filter-1", OwnerID: ownerID, Name: name}, nil
		},
		findViewByIDFn: func(ctx context.Context, id string) (*model.FilterView, error) {
			return &model.FilterView{
				Filter:    model.Filter{ID: id, Name: "tech"},
				Usernames: []string{"bob"},
			}, nil
		},
	}
	svc := NewService(filterRepo, &mockUserRepo{}, &mockTagResolver{}, &mockFreetFilterer{})

	view, err := svc.GetByName(context.Background(), "user-1", "tech")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if view.Name != "tech" {
		t.Errorf("Name = %q, want %q", view.Name, "tech")
	}
}
