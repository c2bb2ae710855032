package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook/internal/model"
	"storybook/internal/store"
)

// 内存版的两侧存储，仅测试用

type memTexts struct {
	m map[string][]byte
}

func newMemTexts() *memTexts { return &memTexts{m: make(map[string][]byte)} }

func (s *memTexts) Put(session string, data []byte) error {
	s.m[session] = append([]byte(nil), data...)
	return nil
}

func (s *memTexts) Get(session string) ([]byte, error) {
	data, ok := s.m[session]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (s *memTexts) Delete(session string) error {
	delete(s.m, session)
	return nil
}

type memBlobs struct {
	m map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{m: make(map[string][]byte)} }

func (s *memBlobs) Put(session, key string, data []byte) error {
	s.m[session+"/"+key] = append([]byte(nil), data...)
	return nil
}

func (s *memBlobs) Get(session, key string) ([]byte, error) {
	data, ok := s.m[session+"/"+key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (s *memBlobs) DeleteAll(session string) error {
	for k := range s.m {
		if len(k) > len(session) && k[:len(session)+1] == session+"/" {
			delete(s.m, k)
		}
	}
	return nil
}

func (s *memBlobs) Close() error { return nil }

func newTestManager() (*Manager, *memTexts, *memBlobs) {
	texts := newMemTexts()
	blobs := newMemBlobs()
	return NewManager(store.NewSessionStore(texts, blobs)), texts, blobs
}

// 照片路径的完整向导流程
func TestMachineFullFlow(t *testing.T) {
	mgr, _, blobs := newTestManager()
	m := mgr.Create()
	assert.Equal(t, model.StepStart, m.State().Step)

	require.True(t, m.SelectOption(model.ChildDataPhoto))
	assert.Equal(t, model.StepUpload, m.State().Step)

	require.True(t, m.SubmitPhoto("data:image/png;base64,photo"))
	assert.Equal(t, model.StepDetails, m.State().Step)

	require.True(t, m.SubmitStoryDetails(model.StoryDetails{ChildName: "Mia", ChildLikes: "dinosaurs"}))
	assert.Equal(t, model.StepScript, m.State().Step)

	require.True(t, m.CompleteScript("Title: T\n\nStanza 1\nline"))
	assert.Equal(t, model.StepIllustration, m.State().Step)

	require.True(t, m.CompleteIllustration("data:image/png;base64,char"))
	assert.Equal(t, model.StepCompile, m.State().Step)

	m.CompleteCharacterMap("data:image/png;base64,map")
	pages := make([]string, model.PageCount)
	for i := range pages {
		pages[i] = "data:image/png;base64,page"
		m.SetPageImage(i+1, pages[i])
	}
	// 生成中途不改变步骤
	assert.Equal(t, model.StepCompile, m.State().Step)

	require.True(t, m.CompletePages(pages))
	assert.Equal(t, model.StepPreview, m.State().Step)

	book := m.Finalize("")
	require.NotNil(t, book)
	assert.Equal(t, model.StepCheckout, m.State().Step)
	assert.Equal(t, "Mia's Story", book.Title)
	assert.Equal(t, model.PageCount, book.PageCount)
	assert.NotEmpty(t, book.ID)
	assert.False(t, book.DateCreated.IsZero())

	// 图片产物全部进了blob存储
	_, err := blobs.Get(m.Session(), store.KeyUserPhoto)
	assert.NoError(t, err)
	_, err = blobs.Get(m.Session(), store.KeyCharacter)
	assert.NoError(t, err)
	_, err = blobs.Get(m.Session(), store.PageKey(12))
	assert.NoError(t, err)
}

// 描述表单路径走form而不是upload
func TestMachineDescriptionFlow(t *testing.T) {
	mgr, _, _ := newTestManager()
	m := mgr.Create()

	require.True(t, m.SelectOption(model.ChildDataDescription))
	assert.Equal(t, model.StepForm, m.State().Step)

	assert.False(t, m.SubmitDescription(model.ChildDescription{}))
	assert.Equal(t, model.StepForm, m.State().Step)

	require.True(t, m.SubmitDescription(model.ChildDescription{HairColor: "brown", EyeColor: "green"}))
	assert.Equal(t, model.StepDetails, m.State().Step)
}

func TestMachineRejectsJump(t *testing.T) {
	mgr, _, _ := newTestManager()
	m := mgr.Create()

	// 数据不足时拒绝跳到后面的步骤，停留在原地
	assert.False(t, m.GoToStep(model.StepScript))
	assert.Equal(t, model.StepStart, m.State().Step)

	assert.False(t, m.Advance("bogus"))
	assert.Equal(t, model.StepStart, m.State().Step)

	// 缺页时Finalize拒绝
	assert.Nil(t, m.Finalize("x"))
}

func TestMachineGoBack(t *testing.T) {
	mgr, _, _ := newTestManager()
	m := mgr.Create()

	require.True(t, m.SelectOption(model.ChildDataPhoto))
	require.True(t, m.SubmitPhoto("p"))
	assert.Equal(t, model.StepDetails, m.State().Step)

	m.GoBack()
	assert.Equal(t, model.StepUpload, m.State().Step)
	m.GoBack()
	assert.Equal(t, model.StepStart, m.State().Step)

	// 历史耗尽后回退是空操作
	m.GoBack()
	assert.Equal(t, model.StepStart, m.State().Step)

	// 回退不清除已填数据
	assert.NotNil(t, m.State().ChildData)
}

func TestMachineReset(t *testing.T) {
	mgr, texts, blobs := newTestManager()
	m := mgr.Create()
	require.True(t, m.SelectOption(model.ChildDataPhoto))
	require.True(t, m.SubmitPhoto("p"))

	m.Reset()
	st := m.State()
	assert.Equal(t, model.StepStart, st.Step)
	assert.Equal(t, []model.Step{model.StepStart}, st.History)
	assert.Nil(t, st.ChildData)
	assert.Empty(t, texts.m)
	assert.Empty(t, blobs.m)

	// 重置后可以重新走流程
	require.True(t, m.SelectOption(model.ChildDataDescription))
	assert.Equal(t, model.StepForm, m.State().Step)
}

// 新Manager从存储恢复会话，photo载荷从blob回填
func TestManagerRestore(t *testing.T) {
	texts := newMemTexts()
	blobs := newMemBlobs()
	sessions := store.NewSessionStore(texts, blobs)

	mgr := NewManager(sessions)
	m := mgr.Create()
	require.True(t, m.SelectOption(model.ChildDataPhoto))
	require.True(t, m.SubmitPhoto("data:image/png;base64,photo"))
	require.True(t, m.SubmitStoryDetails(model.StoryDetails{ChildName: "Leo"}))
	id := m.Session()

	// 模拟进程重启：同样的存储，新的Manager
	mgr2 := NewManager(sessions)
	restored := mgr2.Get(id)
	st := restored.State()
	assert.Equal(t, model.StepScript, st.Step)
	assert.Equal(t, "Leo", st.StoryDetails.ChildName)
	// 照片载荷不在文本状态里，从blob回填
	require.NotNil(t, st.ChildData)
	assert.Equal(t, "data:image/png;base64,photo", st.ChildData.Photo)
}

// preview状态恢复时blob缺页，级联回退到compile
func TestManagerRestorePreviewMissingPages(t *testing.T) {
	texts := newMemTexts()
	blobs := newMemBlobs()
	sessions := store.NewSessionStore(texts, blobs)

	ts := &model.TextState{
		Step:         model.StepPreview,
		History:      []model.Step{model.StepStart, model.StepPreview},
		ChildData:    &model.ChildData{Kind: model.ChildDataDescription, Description: &model.ChildDescription{HairColor: "brown"}},
		StoryDetails: &model.StoryDetails{ChildName: "Mia"},
		StoryScript:  "Stanza 1\nline",
	}
	require.True(t, sessions.SaveTextState("s1", ts))
	require.False(t, sessions.SaveImage("s1", store.KeyCharacter, []byte("char")))
	// 只有部分页在blob里
	require.False(t, sessions.SaveImage("s1", store.PageKey(1), []byte("p1")))

	mgr := NewManager(sessions)
	m := mgr.Get("s1")
	assert.Equal(t, model.StepCompile, m.State().Step)
}

// 未知会话恢复出初始状态
func TestManagerRestoreUnknownSession(t *testing.T) {
	mgr, _, _ := newTestManager()
	m := mgr.Get("never-saved")
	assert.Equal(t, model.StepStart, m.State().Step)

	// 同一会话ID拿到同一个实例
	assert.Same(t, m, mgr.Get("never-saved"))
}
