package wizard

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storybook/internal/model"
	"storybook/internal/store"
)

// Machine 单个会话的向导状态机。
// 所有状态变更都走具名的转换方法，每次提交后同步落盘。
type Machine struct {
	session   string
	st        *model.WizardState
	store     *store.SessionStore
	mu        sync.Mutex
	recovered bool // preview恢复重读每个会话只做一次
}

// Session 会话ID
func (m *Machine) Session() string {
	return m.session
}

// State 返回当前状态的副本
func (m *Machine) State() model.WizardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() model.WizardState {
	cp := *m.st
	cp.History = append([]model.Step(nil), m.st.History...)
	cp.BookIllustrations = append([]string(nil), m.st.BookIllustrations...)
	return cp
}

// Advance 尝试前进到目标步骤。
// 条件不满足时拒绝转换并返回false，调用方停留在当前步骤。
func (m *Machine) Advance(target model.Step) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceLocked(target)
}

func (m *Machine) advanceLocked(target model.Step) bool {
	if !model.ValidStep(target) {
		logrus.Warnf("会话%s: 非法步骤%q", m.session, target)
		return false
	}
	if !CanEnter(target, m.st) {
		logrus.Warnf("会话%s: 数据不完整，拒绝进入%s", m.session, target)
		return false
	}
	m.commitStep(target)
	return true
}

// GoToStep 点击已完成的步骤指示器时的跳转，语义与Advance一致
func (m *Machine) GoToStep(target model.Step) bool {
	return m.Advance(target)
}

// GoBack 单步回退。历史只剩一条时为安全的空操作。
func (m *Machine) GoBack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.st.History) <= 1 {
		return
	}
	m.st.History = m.st.History[:len(m.st.History)-1]
	m.st.Step = m.st.History[len(m.st.History)-1]
	m.persist()
}

// SelectOption 起始步骤的分支选择：照片走upload，描述表单走form
func (m *Machine) SelectOption(kind model.ChildDataKind) bool {
	switch kind {
	case model.ChildDataPhoto:
		return m.Advance(model.StepUpload)
	case model.ChildDataDescription:
		return m.Advance(model.StepForm)
	}
	logrus.Warnf("会话%s: 未知的输入方式%q", m.session, kind)
	return false
}

// SubmitPhoto 提交孩子照片，照片进blob存储，随后进入details
func (m *Machine) SubmitPhoto(photo string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if photo == "" {
		return false
	}
	m.st.ChildData = &model.ChildData{Kind: model.ChildDataPhoto, Photo: photo}
	m.saveImage(store.KeyUserPhoto, photo)
	return m.advanceLocked(model.StepDetails)
}

// SubmitDescription 提交外貌描述表单，随后进入details
func (m *Machine) SubmitDescription(desc model.ChildDescription) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if desc.Empty() {
		return false
	}
	m.st.ChildData = &model.ChildData{Kind: model.ChildDataDescription, Description: &desc}
	return m.advanceLocked(model.StepDetails)
}

// SubmitStoryDetails 提交故事信息，随后进入script
func (m *Machine) SubmitStoryDetails(details model.StoryDetails) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if details.ChildName == "" {
		return false
	}
	m.st.StoryDetails = &details
	return m.advanceLocked(model.StepScript)
}

// CompleteScript 提交（可能经过用户编辑的）故事脚本，随后进入illustration
func (m *Machine) CompleteScript(script string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if script == "" {
		return false
	}
	m.st.StoryScript = script
	return m.advanceLocked(model.StepIllustration)
}

// CompleteIllustration 记录角色插画，随后进入compile
func (m *Machine) CompleteIllustration(illustration string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if illustration == "" {
		return false
	}
	m.st.CharacterIllustration = illustration
	m.saveImage(store.KeyCharacter, illustration)
	return m.advanceLocked(model.StepCompile)
}

// CompleteCharacterMap 记录角色映射参考图
func (m *Machine) CompleteCharacterMap(characterMap string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if characterMap == "" {
		return
	}
	m.st.CharacterMap = characterMap
	m.saveImage(store.KeyCharacterMap, characterMap)
	m.persist()
}

// SetPageImage 记录第n页插画（生成进行中逐页调用），不改变步骤
func (m *Machine) SetPageImage(n int, image string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > model.PageCount || image == "" {
		return
	}
	if len(m.st.BookIllustrations) != model.PageCount {
		pages := make([]string, model.PageCount)
		copy(pages, m.st.BookIllustrations)
		m.st.BookIllustrations = pages
	}
	m.st.BookIllustrations[n-1] = image
	m.saveImage(store.PageKey(n), image)
	m.persist()
}

// CompletePages 全部页插画就绪后进入preview。
// 页数不足12或存在空页时拒绝。
func (m *Machine) CompletePages(pages []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !hasBookIllustrations(pages) {
		logrus.Warnf("会话%s: 页插画不完整，停留在compile", m.session)
		return false
	}
	m.st.BookIllustrations = append([]string(nil), pages...)
	for i, p := range pages {
		m.saveImage(store.PageKey(i+1), p)
	}
	return m.advanceLocked(model.StepPreview)
}

// Finalize 预览确认后产出绘本记录，随后进入checkout
func (m *Machine) Finalize(title string) *model.CompiledBook {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !hasBookIllustrations(m.st.BookIllustrations) {
		logrus.Warnf("会话%s: 页插画不完整，无法定稿", m.session)
		return nil
	}
	if title == "" {
		name := "My"
		if m.st.StoryDetails != nil && m.st.StoryDetails.ChildName != "" {
			name = m.st.StoryDetails.ChildName
		}
		title = fmt.Sprintf("%s's Story", name)
	}
	book := &model.CompiledBook{
		ID:          "book-" + uuid.NewString(),
		Title:       title,
		PageCount:   len(m.st.BookIllustrations),
		DateCreated: time.Now().UTC(),
	}
	m.st.CompiledBook = book
	m.advanceLocked(model.StepCheckout)
	return book
}

// Reset 完整重置：清空两侧存储，状态回到初始
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.ClearAll(m.session)
	m.st = model.NewWizardState()
	m.recovered = false
}

// Validate 被动校验：当前步骤条件不再满足时级联回退。
// 用于恢复出陈旧状态后的纠偏，永远不报错。
func (m *Machine) Validate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validateLocked()
}

func (m *Machine) validateLocked() {
	target := Resolve(m.st.Step, m.st)
	if target == m.st.Step {
		return
	}
	logrus.Warnf("会话%s: 步骤%s数据缺失，回退到%s", m.session, m.st.Step, target)
	m.commitStep(target)
}

// commitStep 提交一次已通过校验的步骤变更
func (m *Machine) commitStep(target model.Step) {
	if len(m.st.History) == 0 || m.st.History[len(m.st.History)-1] != target {
		m.st.History = append(m.st.History, target)
	}
	m.st.Step = target
	m.persist()
}

// saveImage 写blob并在配额失败时置storageError（每次写最多置一次）
func (m *Machine) saveImage(key, image string) {
	if m.store.SaveImage(m.session, key, []byte(image)) {
		m.st.StorageError = true
	}
}

// persist 落盘文本状态。photo变体剥离载荷，只保留变体标签。
func (m *Machine) persist() {
	ts := &model.TextState{
		Step:         m.st.Step,
		History:      append([]model.Step(nil), m.st.History...),
		ChildData:    m.st.ChildData,
		StoryDetails: m.st.StoryDetails,
		StoryScript:  m.st.StoryScript,
		CompiledBook: m.st.CompiledBook,
		StorageError: m.st.StorageError,
	}
	if ts.ChildData != nil && ts.ChildData.Kind == model.ChildDataPhoto {
		ts.ChildData = &model.ChildData{Kind: model.ChildDataPhoto}
	}
	if !m.store.SaveTextState(m.session, ts) {
		m.st.StorageError = true
	}
}

// Manager 管理全部会话的状态机，不在内存中的会话从存储恢复
type Manager struct {
	store    *store.SessionStore
	mu       sync.RWMutex
	machines map[string]*Machine
}

func NewManager(st *store.SessionStore) *Manager {
	return &Manager{
		store:    st,
		machines: make(map[string]*Machine),
	}
}

// Create 新建会话
func (mgr *Manager) Create() *Machine {
	m := &Machine{
		session: uuid.NewString(),
		st:      model.NewWizardState(),
		store:   mgr.store,
	}
	mgr.mu.Lock()
	mgr.machines[m.session] = m
	mgr.mu.Unlock()
	return m
}

// Get 返回会话的状态机，内存中没有时从存储恢复
func (mgr *Manager) Get(session string) *Machine {
	mgr.mu.RLock()
	m, ok := mgr.machines[session]
	mgr.mu.RUnlock()
	if ok {
		return m
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if m, ok := mgr.machines[session]; ok {
		return m
	}
	m = mgr.restore(session)
	mgr.machines[session] = m
	return m
}

// restore 从两侧存储恢复一个会话
func (mgr *Manager) restore(session string) *Machine {
	ts := mgr.store.LoadTextState(session)
	st := &model.WizardState{
		Step:         ts.Step,
		History:      ts.History,
		ChildData:    ts.ChildData,
		StoryDetails: ts.StoryDetails,
		StoryScript:  ts.StoryScript,
		CompiledBook: ts.CompiledBook,
		StorageError: ts.StorageError,
	}

	// 二进制产物从blob存储回填
	if st.ChildData != nil && st.ChildData.Kind == model.ChildDataPhoto {
		if photo := mgr.store.LoadImage(session, store.KeyUserPhoto); photo != nil {
			st.ChildData.Photo = string(photo)
		}
	}
	if img := mgr.store.LoadImage(session, store.KeyCharacter); img != nil {
		st.CharacterIllustration = string(img)
	}
	if img := mgr.store.LoadImage(session, store.KeyCharacterMap); img != nil {
		st.CharacterMap = string(img)
	}
	pages := mgr.store.LoadPageImages(session)
	if anyPage(pages) {
		st.BookIllustrations = pages
	}

	m := &Machine{session: session, st: st, store: mgr.store}

	// preview恢复：blob没给齐12页时自动重读一次，仍不齐则级联回退到compile
	if st.Step == model.StepPreview && !hasBookIllustrations(st.BookIllustrations) && !m.recovered {
		m.recovered = true
		logrus.Warnf("会话%s: preview缺页，尝试重读blob存储", session)
		pages = mgr.store.LoadPageImages(session)
		if anyPage(pages) {
			st.BookIllustrations = pages
		}
	}

	m.validateLocked()
	return m
}

func anyPage(pages []string) bool {
	for _, p := range pages {
		if p != "" {
			return true
		}
	}
	return false
}
