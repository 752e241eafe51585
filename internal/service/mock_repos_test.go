package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Tahatra21/solarhub-sub000/internal/model"
	"github.com/Tahatra21/solarhub-sub000/internal/repository"
	"github.com/Tahatra21/solarhub-sub000/pkg/storage"
)

// ── 测试用仓储聚合 ──

type mockStore struct {
	users      *mockUserRepo
	roles      *mockRoleRepo
	positions  *mockPositionRepo
	menus      *mockMenuRepo
	logs       *mockActivityLogRepo
	categories *mockMasterDataRepo
	segments   *mockMasterDataRepo
	stages     *mockMasterDataRepo
	intervals  *mockIntervalRepo
	products   *mockProductRepo
	devs       *mockDevHistoryRepo
	licenses   *mockLicenseRepo
	crjrs      *mockCRJRRepo
	programs   *mockRunProgramRepo
}

func newMockStore() (*repository.Repository, *mockStore) {
	st := &mockStore{
		users:      newMockUserRepo(),
		roles:      newMockRoleRepo(),
		positions:  newMockPositionRepo(),
		menus:      newMockMenuRepo(),
		logs:       &mockActivityLogRepo{},
		categories: newMockMasterDataRepo(),
		segments:   newMockMasterDataRepo(),
		stages:     newMockMasterDataRepo(),
		licenses:   newMockLicenseRepo(),
		crjrs:      newMockCRJRRepo(),
		programs:   newMockRunProgramRepo(),
	}
	st.intervals = newMockIntervalRepo(st.stages)
	st.products = newMockProductRepo(st.categories, st.segments, st.stages)
	st.devs = newMockDevHistoryRepo(st.products)
	st.users.roles = st.roles

	repo := &repository.Repository{
		User:        st.users,
		Role:        st.roles,
		Position:    st.positions,
		Menu:        st.menus,
		ActivityLog: st.logs,
		Category:    st.categories,
		Segment:     st.segments,
		Stage:       st.stages,
		Interval:    st.intervals,
		Product:     st.products,
		DevHistory:  st.devs,
		License:     st.licenses,
		CRJR:        st.crjrs,
		RunProgram:  st.programs,
	}
	return repo, st
}

// seedLifecycle 预置四个标准阶段、两个细分、一个类别，返回名称 → ID
func (st *mockStore) seedLifecycle() map[string]int64 {
	ids := make(map[string]int64)
	for _, name := range []string{model.StageIntroduction, model.StageGrowth, model.StageMaturity, model.StageDecline} {
		ids[name] = st.stages.add(name)
	}
	ids["Enterprise"] = st.segments.add("Enterprise")
	ids["Retail"] = st.segments.add("Retail")
	ids["Connectivity"] = st.categories.add("Connectivity")
	return ids
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
	roles  *mockRoleRepo
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) preload(u *model.User) *model.User {
	if m.roles != nil {
		if r, ok := m.roles.roles[u.RoleID]; ok {
			u.Role = r
		}
	}
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return m.preload(u), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return m.preload(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return m.preload(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserListFilter, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Username+u.Fullname), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, *m.preload(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, roleID int64) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) CountByPosition(_ context.Context, positionID int64) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.PositionID != nil && *u.PositionID == positionID {
			n++
		}
	}
	return n, nil
}

// ── Mock RoleRepository ──

type mockRoleRepo struct {
	roles  map[int64]*model.Role
	nextID int64
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[int64]*model.Role)}
}

func (m *mockRoleRepo) add(name string) int64 {
	m.nextID++
	m.roles[m.nextID] = &model.Role{ID: m.nextID, Name: name}
	return m.nextID
}

func (m *mockRoleRepo) Create(_ context.Context, role *model.Role) error {
	m.nextID++
	role.ID = m.nextID
	m.roles[role.ID] = role
	return nil
}

func (m *mockRoleRepo) GetByID(_ context.Context, id int64) (*model.Role, error) {
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) GetByName(_ context.Context, name string, excludeID int64) (*model.Role, error) {
	for _, r := range m.roles {
		if r.ID != excludeID && strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) List(ctx context.Context, _ repository.NameListFilter, offset, limit int) ([]model.Role, int64, error) {
	all, _ := m.ListAll(ctx)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	var result []model.Role
	for _, r := range m.roles {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockRoleRepo) Update(_ context.Context, role *model.Role) error {
	m.roles[role.ID] = role
	return nil
}

func (m *mockRoleRepo) Delete(_ context.Context, id int64) error {
	delete(m.roles, id)
	return nil
}

// ── Mock PositionRepository ──

type mockPositionRepo struct {
	positions map[int64]*model.Position
	nextID    int64
}

func newMockPositionRepo() *mockPositionRepo {
	return &mockPositionRepo{positions: make(map[int64]*model.Position)}
}

func (m *mockPositionRepo) Create(_ context.Context, pos *model.Position) error {
	m.nextID++
	pos.ID = m.nextID
	m.positions[pos.ID] = pos
	return nil
}

func (m *mockPositionRepo) GetByID(_ context.Context, id int64) (*model.Position, error) {
	if p, ok := m.positions[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPositionRepo) GetByName(_ context.Context, name string, excludeID int64) (*model.Position, error) {
	for _, p := range m.positions {
		if p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPositionRepo) List(ctx context.Context, _ repository.NameListFilter, offset, limit int) ([]model.Position, int64, error) {
	all, _ := m.ListAll(ctx)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockPositionRepo) ListAll(_ context.Context) ([]model.Position, error) {
	var result []model.Position
	for _, p := range m.positions {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockPositionRepo) Update(_ context.Context, pos *model.Position) error {
	m.positions[pos.ID] = pos
	return nil
}

func (m *mockPositionRepo) Delete(_ context.Context, id int64) error {
	delete(m.positions, id)
	return nil
}

// ── Mock MenuRepository ──

type mockMenuRepo struct {
	items []model.MenuItem
	perms map[int64][]model.RoleMenuPermission
}

func newMockMenuRepo() *mockMenuRepo {
	return &mockMenuRepo{perms: make(map[int64][]model.RoleMenuPermission)}
}

func (m *mockMenuRepo) ListActive(_ context.Context) ([]model.MenuItem, error) {
	var result []model.MenuItem
	for _, it := range m.items {
		if it.IsActive {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *mockMenuRepo) ListPermissionsByRole(_ context.Context, roleID int64) ([]model.RoleMenuPermission, error) {
	return m.perms[roleID], nil
}

func (m *mockMenuRepo) ReplacePermissions(_ context.Context, roleID int64, perms []model.RoleMenuPermission) error {
	rows := make([]model.RoleMenuPermission, len(perms))
	for i, p := range perms {
		p.RoleID = roleID
		rows[i] = p
	}
	m.perms[roleID] = rows
	return nil
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	logs []model.ActivityLog
}

func (m *mockActivityLogRepo) Create(_ context.Context, log *model.ActivityLog) error {
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityLogRepo) ListByUser(_ context.Context, userID int64, activityType string, offset, limit int) ([]model.ActivityLog, int64, error) {
	var result []model.ActivityLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if l.UserID == nil || *l.UserID != userID {
			continue
		}
		if activityType != "" && l.ActivityType != activityType {
			continue
		}
		result = append(result, l)
	}
	return paginate(result, offset, limit), int64(len(result)), nil
}

// ── Mock MasterDataRepository（类别 / 细分 / 阶段共用） ──

type mockMasterDataRepo struct {
	items    map[int64]*model.MasterData
	products map[int64]int64 // id → 产品数
	nextID   int64
}

func newMockMasterDataRepo() *mockMasterDataRepo {
	return &mockMasterDataRepo{items: make(map[int64]*model.MasterData), products: make(map[int64]int64)}
}

func (m *mockMasterDataRepo) add(name string) int64 {
	m.nextID++
	m.items[m.nextID] = &model.MasterData{ID: m.nextID, Name: name}
	return m.nextID
}

func (m *mockMasterDataRepo) name(id int64) string {
	if it, ok := m.items[id]; ok {
		return it.Name
	}
	return ""
}

func (m *mockMasterDataRepo) Create(_ context.Context, item *model.MasterData) error {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return nil
}

func (m *mockMasterDataRepo) GetByID(_ context.Context, id int64) (*model.MasterData, error) {
	if it, ok := m.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMasterDataRepo) GetByName(_ context.Context, name string, excludeID int64) (*model.MasterData, error) {
	for _, it := range m.items {
		if it.ID != excludeID && strings.EqualFold(it.Name, name) {
			return it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMasterDataRepo) List(ctx context.Context, _ repository.NameListFilter, offset, limit int) ([]model.MasterData, int64, error) {
	all, _ := m.ListAll(ctx)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockMasterDataRepo) ListAll(_ context.Context) ([]model.MasterData, error) {
	var result []model.MasterData
	for _, it := range m.items {
		result = append(result, *it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockMasterDataRepo) Update(_ context.Context, item *model.MasterData) error {
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockMasterDataRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *mockMasterDataRepo) CountProducts(_ context.Context, id int64) (int64, error) {
	return m.products[id], nil
}

func (m *mockMasterDataRepo) CountProductsGrouped(_ context.Context) (map[int64]int64, error) {
	out := make(map[int64]int64, len(m.products))
	for id, n := range m.products {
		if n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// ── Mock IntervalRepository ──

type mockIntervalRepo struct {
	items  map[int64]*model.StageInterval
	nextID int64
	stages *mockMasterDataRepo
}

func newMockIntervalRepo(stages *mockMasterDataRepo) *mockIntervalRepo {
	return &mockIntervalRepo{items: make(map[int64]*model.StageInterval), stages: stages}
}

func (m *mockIntervalRepo) preload(it model.StageInterval) model.StageInterval {
	if s, ok := m.stages.items[it.PreviousStageID]; ok {
		st := model.Stage(*s)
		it.PreviousStage = &st
	}
	if s, ok := m.stages.items[it.NextStageID]; ok {
		st := model.Stage(*s)
		it.NextStage = &st
	}
	return it
}

func (m *mockIntervalRepo) Create(_ context.Context, item *model.StageInterval) error {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return nil
}

func (m *mockIntervalRepo) GetByID(_ context.Context, id int64) (*model.StageInterval, error) {
	if it, ok := m.items[id]; ok {
		out := m.preload(*it)
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIntervalRepo) GetByPair(_ context.Context, prevID, nextID, excludeID int64) (*model.StageInterval, error) {
	for _, it := range m.items {
		if it.ID != excludeID && it.PreviousStageID == prevID && it.NextStageID == nextID {
			return it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIntervalRepo) List(ctx context.Context, _ repository.NameListFilter, offset, limit int) ([]model.StageInterval, int64, error) {
	all, _ := m.ListAll(ctx)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockIntervalRepo) ListAll(_ context.Context) ([]model.StageInterval, error) {
	var result []model.StageInterval
	for _, it := range m.items {
		result = append(result, m.preload(*it))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockIntervalRepo) Update(_ context.Context, item *model.StageInterval) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockIntervalRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *mockIntervalRepo) CountByStage(_ context.Context, stageID int64) (int64, error) {
	var n int64
	for _, it := range m.items {
		if it.PreviousStageID == stageID || it.NextStageID == stageID {
			n++
		}
	}
	return n, nil
}

// ── Mock ProductRepository ──

type mockProductRepo struct {
	products    map[int64]*model.Product
	attachments map[int64]*model.ProductAttachment
	histories   []model.StageHistory
	nextID      int64
	nextAttID   int64

	categories, segments, stages *mockMasterDataRepo
	// failOn 非空时对应方法返回错误（测试回滚路径）
	failOn string
}

func newMockProductRepo(categories, segments, stages *mockMasterDataRepo) *mockProductRepo {
	return &mockProductRepo{
		products:    make(map[int64]*model.Product),
		attachments: make(map[int64]*model.ProductAttachment),
		categories:  categories,
		segments:    segments,
		stages:      stages,
	}
}

func (m *mockProductRepo) fail(method string) error {
	if m.failOn == method {
		return fmt.Errorf("mock: %s 失败", method)
	}
	return nil
}

func stageRef(repo *mockMasterDataRepo, id int64) *model.Stage {
	if it, ok := repo.items[id]; ok {
		s := model.Stage(*it)
		return &s
	}
	return nil
}

func (m *mockProductRepo) preload(p model.Product) model.Product {
	if it, ok := m.categories.items[p.CategoryID]; ok {
		c := model.Category(*it)
		p.Category = &c
	}
	if it, ok := m.segments.items[p.SegmentID]; ok {
		s := model.Segment(*it)
		p.Segment = &s
	}
	p.Stage = stageRef(m.stages, p.StageID)
	p.Attachments = nil
	for _, a := range m.attachments {
		if a.ProductID == p.ID {
			p.Attachments = append(p.Attachments, *a)
		}
	}
	sort.Slice(p.Attachments, func(i, j int) bool { return p.Attachments[i].ID < p.Attachments[j].ID })
	return p
}

// add 直接写入一个产品（测试准备数据用）
func (m *mockProductRepo) add(p model.Product) int64 {
	m.nextID++
	p.ID = m.nextID
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.products[p.ID] = &p
	return p.ID
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	if err := m.fail("Create"); err != nil {
		return err
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) CreateBatch(ctx context.Context, products []model.Product) error {
	for i := range products {
		if err := m.Create(ctx, &products[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*model.Product, error) {
	if p, ok := m.products[id]; ok {
		out := m.preload(*p)
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProductRepo) GetByName(_ context.Context, name string, excludeID int64) (*model.Product, error) {
	for _, p := range m.products {
		if p.ID != excludeID && p.Name == name {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductListFilter, offset, limit int) ([]model.Product, int64, error) {
	all, _ := m.ListAll(ctx, filter)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockProductRepo) ListAll(_ context.Context, filter repository.ProductListFilter) ([]model.Product, error) {
	var result []model.Product
	for _, p := range m.products {
		if filter.CategoryID > 0 && p.CategoryID != filter.CategoryID ||
			filter.SegmentID > 0 && p.SegmentID != filter.SegmentID ||
			filter.StageID > 0 && p.StageID != filter.StageID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, m.preload(*p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockProductRepo) ListOptions(ctx context.Context) ([]model.Product, error) {
	return m.ListAll(ctx, repository.ProductListFilter{})
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if err := m.fail("Update"); err != nil {
		return err
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id int64) error {
	delete(m.products, id)
	for aid, a := range m.attachments {
		if a.ProductID == id {
			delete(m.attachments, aid)
		}
	}
	kept := m.histories[:0]
	for _, h := range m.histories {
		if h.ProductID != id {
			kept = append(kept, h)
		}
	}
	m.histories = kept
	return nil
}

func (m *mockProductRepo) ExistingNames(_ context.Context, names []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, n := range names {
		for _, p := range m.products {
			if p.Name == n {
				out[n] = true
			}
		}
	}
	return out, nil
}

func (m *mockProductRepo) CountByStageAndSegment(_ context.Context) ([]repository.StageSegmentCount, error) {
	type key struct{ stage, segment int64 }
	counts := make(map[key]int64)
	for _, p := range m.products {
		counts[key{p.StageID, p.SegmentID}]++
	}
	var result []repository.StageSegmentCount
	for k, n := range counts {
		result = append(result, repository.StageSegmentCount{StageID: k.stage, SegmentID: k.segment, Count: n})
	}
	return result, nil
}

func (m *mockProductRepo) LatestUpdate(_ context.Context) (*time.Time, error) {
	var latest *time.Time
	for _, p := range m.products {
		if latest == nil || p.UpdatedAt.After(*latest) {
			t := p.UpdatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (m *mockProductRepo) CreateAttachments(_ context.Context, atts []model.ProductAttachment) error {
	if len(atts) == 0 {
		return nil
	}
	if err := m.fail("CreateAttachments"); err != nil {
		return err
	}
	for i := range atts {
		m.nextAttID++
		atts[i].ID = m.nextAttID
		cp := atts[i]
		m.attachments[cp.ID] = &cp
	}
	return nil
}

func (m *mockProductRepo) ListAttachments(_ context.Context, productID int64) ([]model.ProductAttachment, error) {
	var result []model.ProductAttachment
	for _, a := range m.attachments {
		if a.ProductID == productID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockProductRepo) GetAttachment(_ context.Context, id int64) (*model.ProductAttachment, error) {
	if a, ok := m.attachments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProductRepo) DeleteAttachment(_ context.Context, id int64) error {
	delete(m.attachments, id)
	return nil
}

func (m *mockProductRepo) CreateStageHistory(_ context.Context, h *model.StageHistory) error {
	if err := m.fail("CreateStageHistory"); err != nil {
		return err
	}
	h.ID = int64(len(m.histories) + 1)
	m.histories = append(m.histories, *h)
	return nil
}

func (m *mockProductRepo) withStages(h model.StageHistory) model.StageHistory {
	if h.PreviousStageID != nil {
		h.PreviousStage = stageRef(m.stages, *h.PreviousStageID)
	}
	h.CurrentStage = stageRef(m.stages, h.CurrentStageID)
	return h
}

func (m *mockProductRepo) ListStageHistory(_ context.Context, productID int64) ([]model.StageHistory, error) {
	var result []model.StageHistory
	for _, h := range m.histories {
		if h.ProductID == productID {
			result = append(result, m.withStages(h))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ChangedAt.After(result[j].ChangedAt) })
	return result, nil
}

func (m *mockProductRepo) ListAllStageHistories(_ context.Context) ([]model.StageHistory, error) {
	result := make([]model.StageHistory, 0, len(m.histories))
	for _, h := range m.histories {
		result = append(result, m.withStages(h))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ProductID != result[j].ProductID {
			return result[i].ProductID < result[j].ProductID
		}
		return result[i].ChangedAt.Before(result[j].ChangedAt)
	})
	return result, nil
}

// ── Mock DevHistoryRepository ──

type mockDevHistoryRepo struct {
	rows     map[int64]*model.DevHistory
	nextID   int64
	products *mockProductRepo
}

func newMockDevHistoryRepo(products *mockProductRepo) *mockDevHistoryRepo {
	return &mockDevHistoryRepo{rows: make(map[int64]*model.DevHistory), products: products}
}

func (m *mockDevHistoryRepo) Create(_ context.Context, h *model.DevHistory) error {
	m.nextID++
	h.ID = m.nextID
	cp := *h
	m.rows[h.ID] = &cp
	return nil
}

func (m *mockDevHistoryRepo) CreateBatch(ctx context.Context, rows []model.DevHistory) error {
	for i := range rows {
		if err := m.Create(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockDevHistoryRepo) GetByID(_ context.Context, id int64) (*model.DevHistory, error) {
	h, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *h
	if p, ok := m.products.products[h.ProductID]; ok {
		cp.Product = p
	}
	return &cp, nil
}

func (m *mockDevHistoryRepo) List(_ context.Context, filter repository.DevHistoryListFilter, offset, limit int) ([]model.DevHistory, int64, error) {
	var result []model.DevHistory
	for _, h := range m.rows {
		if filter.ProductID > 0 && h.ProductID != filter.ProductID {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		result = append(result, *h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockDevHistoryRepo) Update(_ context.Context, h *model.DevHistory) error {
	cp := *h
	m.rows[h.ID] = &cp
	return nil
}

func (m *mockDevHistoryRepo) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

// ── Mock LicenseRepository ──

type mockLicenseRepo struct {
	rows   map[int64]*model.License
	nextID int64
	// expiringCalls 记录 ListExpiring 调用次数（缓存测试用）
	expiringCalls int
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{rows: make(map[int64]*model.License)}
}

func (m *mockLicenseRepo) Create(_ context.Context, l *model.License) error {
	m.nextID++
	l.ID = m.nextID
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *mockLicenseRepo) GetByID(_ context.Context, id int64) (*model.License, error) {
	if l, ok := m.rows[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLicenseRepo) List(ctx context.Context, filter repository.LicenseListFilter, offset, limit int) ([]model.License, int64, error) {
	all, _ := m.ListAll(ctx, filter)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockLicenseRepo) ListAll(_ context.Context, filter repository.LicenseListFilter) ([]model.License, error) {
	var result []model.License
	for _, l := range m.rows {
		if filter.Type != "" && l.Type != filter.Type {
			continue
		}
		if filter.Status != "" && model.LicenseStatus(l.EndDate, filter.Today, filter.WindowDays) != filter.Status {
			continue
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockLicenseRepo) Update(_ context.Context, l *model.License) error {
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *mockLicenseRepo) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockLicenseRepo) Statistics(_ context.Context, today time.Time, windowDays int) (*repository.LicenseStats, error) {
	st := &repository.LicenseStats{}
	for _, l := range m.rows {
		st.Total++
		st.TotalValue += l.TotalPrice
		switch model.LicenseStatus(l.EndDate, today, windowDays) {
		case model.LicenseStatusActive:
			st.Active++
		case model.LicenseStatusExpiring:
			st.Expiring++
		case model.LicenseStatusExpired:
			st.Expired++
		}
	}
	return st, nil
}

func (m *mockLicenseRepo) Distinct(_ context.Context, column string) ([]string, error) {
	seen := make(map[string]bool)
	var values []string
	for _, l := range m.rows {
		var v string
		switch column {
		case "type":
			v = l.Type
		case "company":
			v = l.Company
		case "bpo":
			v = l.BPO
		case "period":
			v = l.Period
		default:
			return nil, fmt.Errorf("不支持的筛选列: %s", column)
		}
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values, nil
}

func (m *mockLicenseRepo) ListExpiring(_ context.Context, from, to time.Time, limit int) ([]model.License, error) {
	m.expiringCalls++
	fromDay := from.Truncate(24 * time.Hour)
	var result []model.License
	for _, l := range m.rows {
		if l.EndDate == nil || l.EndDate.Before(fromDay) || l.EndDate.After(to) {
			continue
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EndDate.Before(*result[j].EndDate) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ── Mock CRJRRepository ──

type mockCRJRRepo struct {
	rows   map[int64]*model.CRJR
	nextID int64
}

func newMockCRJRRepo() *mockCRJRRepo {
	return &mockCRJRRepo{rows: make(map[int64]*model.CRJR)}
}

func (m *mockCRJRRepo) Create(_ context.Context, c *model.CRJR) error {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockCRJRRepo) GetByID(_ context.Context, id int64) (*model.CRJR, error) {
	if c, ok := m.rows[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCRJRRepo) List(ctx context.Context, filter repository.CRJRListFilter, offset, limit int) ([]model.CRJR, int64, error) {
	all, _ := m.ListAll(ctx, filter)
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockCRJRRepo) ListAll(_ context.Context, filter repository.CRJRListFilter) ([]model.CRJR, error) {
	var result []model.CRJR
	for _, c := range m.rows {
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.Year != 0 && c.Year != filter.Year {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCRJRRepo) Update(_ context.Context, c *model.CRJR) error {
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockCRJRRepo) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockCRJRRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.rows)), nil
}

func (m *mockCRJRRepo) column(c *model.CRJR, column string) string {
	switch column {
	case "type":
		return c.Type
	case "corp":
		return c.Corp
	case "stage":
		return c.Stage
	case "organization":
		return c.Organization
	case "year":
		return fmt.Sprint(c.Year)
	}
	return ""
}

func (m *mockCRJRRepo) CountBy(_ context.Context, column string) ([]repository.LabelCount, error) {
	counts := make(map[string]int64)
	for _, c := range m.rows {
		counts[m.column(c, column)]++
	}
	return sortedCounts(counts, 0), nil
}

func (m *mockCRJRRepo) Distinct(_ context.Context, column string) ([]string, error) {
	seen := make(map[string]bool)
	var values []string
	for _, c := range m.rows {
		v := m.column(c, column)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values, nil
}

func (m *mockCRJRRepo) DistinctYears(_ context.Context) ([]int, error) {
	seen := make(map[int]bool)
	var years []int
	for _, c := range m.rows {
		if !seen[c.Year] {
			seen[c.Year] = true
			years = append(years, c.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// ── Mock RunProgramRepository ──

type mockRunProgramRepo struct {
	rows   map[int64]*model.RunProgram
	nextID int64
}

func newMockRunProgramRepo() *mockRunProgramRepo {
	return &mockRunProgramRepo{rows: make(map[int64]*model.RunProgram)}
}

func (m *mockRunProgramRepo) Create(_ context.Context, p *model.RunProgram) error {
	m.nextID++
	p.ID = m.nextID
	for i := range p.Progresses {
		p.Progresses[i].ID = int64(i + 1)
		p.Progresses[i].RunProgramID = p.ID
	}
	cp := *p
	cp.Progresses = append([]model.RunProgramProgress(nil), p.Progresses...)
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockRunProgramRepo) GetByID(_ context.Context, id int64) (*model.RunProgram, error) {
	if p, ok := m.rows[id]; ok {
		cp := *p
		cp.Progresses = append([]model.RunProgramProgress(nil), p.Progresses...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRunProgramRepo) List(_ context.Context, filter repository.RunProgramListFilter, offset, limit int) ([]model.RunProgram, int64, error) {
	var result []model.RunProgram
	for _, p := range m.rows {
		if filter.Priority != "" && p.Priority != filter.Priority {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockRunProgramRepo) Update(_ context.Context, p *model.RunProgram) error {
	existing, ok := m.rows[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	cp.Progresses = existing.Progresses
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockRunProgramRepo) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockRunProgramRepo) ReplaceProgresses(_ context.Context, programID int64, rows []model.RunProgramProgress) error {
	p, ok := m.rows[programID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range rows {
		rows[i].ID = int64(i + 1)
		rows[i].RunProgramID = programID
	}
	p.Progresses = append([]model.RunProgramProgress(nil), rows...)
	return nil
}

func (m *mockRunProgramRepo) ReplaceAll(ctx context.Context, programs []model.RunProgram) error {
	m.rows = make(map[int64]*model.RunProgram)
	for i := range programs {
		if err := m.Create(ctx, &programs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRunProgramRepo) Aggregate(_ context.Context) (*repository.RunProgramAggregate, error) {
	agg := &repository.RunProgramAggregate{}
	var sumCompletion float64
	for _, p := range m.rows {
		agg.Total++
		sumCompletion += p.PercentComplete
		agg.TotalRevenue += p.RevenuePotential
		agg.MaxRevenue = max(agg.MaxRevenue, p.RevenuePotential)
	}
	if agg.Total > 0 {
		agg.AvgCompletion = sumCompletion / float64(agg.Total)
		agg.AvgRevenue = agg.TotalRevenue / float64(agg.Total)
	}
	return agg, nil
}

func (m *mockRunProgramRepo) column(p *model.RunProgram, column string) string {
	switch column {
	case "type":
		return p.Type
	case "bpo":
		return p.BPO
	case "priority":
		return p.Priority
	case "overall_status":
		return p.OverallStatus
	case "holding":
		return p.Holding
	}
	return ""
}

func (m *mockRunProgramRepo) CountBy(_ context.Context, column string, limit int) ([]repository.LabelCount, error) {
	counts := make(map[string]int64)
	for _, p := range m.rows {
		if v := m.column(p, column); v != "" {
			counts[v]++
		}
	}
	return sortedCounts(counts, limit), nil
}

func (m *mockRunProgramRepo) Distinct(_ context.Context, column string) ([]string, error) {
	seen := make(map[string]bool)
	var values []string
	for _, p := range m.rows {
		v := m.column(p, column)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values, nil
}

// ── Mock FileStore / Cache ──

type mockFileStore struct {
	saved   []string
	removed []string
	err     error
}

func (m *mockFileStore) Save(subdir string, fh *multipart.FileHeader, _ storage.Rule) (*storage.File, error) {
	if m.err != nil {
		return nil, m.err
	}
	url := fmt.Sprintf("/uploads/%s/%d-%s", subdir, len(m.saved)+1, fh.Filename)
	m.saved = append(m.saved, url)
	return &storage.File{Name: fh.Filename, URL: url, Size: fh.Size, MimeType: "application/octet-stream"}, nil
}

func (m *mockFileStore) Remove(url string) error {
	m.removed = append(m.removed, url)
	return nil
}

// mockCache 内存 JSON 缓存（仅记录原始值，不做序列化）
type mockCache struct {
	values  map[string]interface{}
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string]interface{})}
}

func (m *mockCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, copyJSONValue(v, dst)
}

func (m *mockCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	m.values[key] = v
	return nil
}

func (m *mockCache) DeleteByPrefix(_ context.Context, prefix string) error {
	m.deleted = append(m.deleted, prefix)
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

// ── 公共辅助 ──

func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

func sortedCounts(counts map[string]int64, limit int) []repository.LabelCount {
	result := make([]repository.LabelCount, 0, len(counts))
	for label, n := range counts {
		result = append(result, repository.LabelCount{Label: label, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func copyJSONValue(v, dst interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
