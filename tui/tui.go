package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"tasklist/app"
	"tasklist/auth"
	"tasklist/logging"
	"tasklist/model"
	"tasklist/remote"
)

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenMain
)

type focusPane int

const (
	focusLists focusPane = iota
	focusTasks
)

func (f focusPane) String() string {
	if f == focusTasks {
		return "tarefas"
	}
	return "listas"
}

type uiMode int

const (
	modeNormal uiMode = iota
	modeAddList
	modeRenameList
	modeAddTask
	modeEditTask
	modeEditDescription
	modeEditDue
	modeConfirmDelete
	modeConfirmForce
	modeConfirmReset
)

type deleteKind int

const (
	deleteNone deleteKind = iota
	deleteList
	deleteTask
)

const dueLayout = "2006-01-02"

// Hydration is the state read at startup, plus a message for the status
// line when loading needed attention.
type Hydration struct {
	State   model.AppState
	Message string
}

type Options struct {
	Service *app.Service
	// Auth gates the main screen behind a login. Nil disables the gate.
	Auth *auth.Manager
	// Load reads persisted state. It runs off the UI goroutine.
	Load func() Hydration
	// Context bounds backend calls started from the UI.
	Context context.Context
	Logger  *log.Logger
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

type (
	hydratedMsg struct {
		hydration Hydration
		session   *auth.Session
	}
	changeMsg struct {
		op     app.Op
		status app.Status
	}
	loginMsg struct {
		session auth.Session
		err     error
	}
	opMsg struct {
		success string
		failure string
		taskID  string
		err     error
	}
	clipboardMsg struct {
		count int
		err   error
	}
)

type Model struct {
	svc    *app.Service
	auth   *auth.Manager
	load   func() Hydration
	ctx    context.Context
	logger *log.Logger
	copy   func(string) error

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	spinning bool

	input      textinput.Model
	username   textinput.Model
	password   textinput.Model
	loginFocus int
	loggingIn  bool

	screen     screen
	focus      focusPane
	mode       uiMode
	taskCursor int
	busy       int

	confirmKind deleteKind
	confirmID   string
	confirmName string

	showHelp  bool
	status    string
	statusErr bool

	width  int
	height int
}

func NewModel(opts Options) *Model {
	svc := opts.Service
	if svc == nil {
		svc = app.New(app.NewLocalBackend(), app.Options{})
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	m := &Model{
		svc:     svc,
		auth:    opts.Auth,
		load:    opts.Load,
		ctx:     ctx,
		logger:  logging.OrDiscard(opts.Logger),
		copy:    copyFn,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		input:   newInput("", 0),
		screen:  screenLoading,
		focus:   focusLists,
		status:  "Pronto",
	}
	m.username = newInput("usuário", 64)
	m.password = newInput("senha", 128)
	m.password.EchoMode = textinput.EchoPassword
	m.password.EchoCharacter = '•'
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.hydrateCmd(), m.startSpinner())
}

func (m *Model) hydrateCmd() tea.Cmd {
	load := m.load
	svc := m.svc
	am := m.auth
	return func() tea.Msg {
		h := Hydration{State: svc.Backend().DefaultState()}
		if load != nil {
			h = load()
		}
		var session *auth.Session
		if am != nil {
			session, _ = am.Hydrate()
		}
		return hydratedMsg{hydration: h, session: session}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case hydratedMsg:
		return m, m.onHydrated(msg)
	case changeMsg:
		m.ensureSelection()
		if msg.status.Loading {
			return m, m.startSpinner()
		}
	case loginMsg:
		return m, m.onLogin(msg)
	case opMsg:
		return m, m.onOp(msg)
	case clipboardMsg:
		if msg.err != nil {
			m.setStatus("Falha ao copiar: "+msg.err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("%d tarefas pendentes copiadas para a área de transferência", msg.count), false)
		}
	case spinner.TickMsg:
		if !m.needsSpinner() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch m.screen {
		case screenLoading:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		case screenLogin:
			return m, m.updateLogin(msg)
		default:
			return m, m.updateMain(msg)
		}
	}
	return m, nil
}

func (m *Model) onHydrated(msg hydratedMsg) tea.Cmd {
	m.svc.Hydrate(msg.hydration.State)
	if msg.session != nil {
		u := msg.session.User
		m.svc.SetUser(&u)
	}
	if msg.hydration.Message != "" {
		m.setStatus(msg.hydration.Message, true)
	}
	if m.auth != nil && !m.auth.IsAuthenticated() {
		m.showLogin()
		return nil
	}
	m.screen = screenMain
	m.ensureSelection()
	if msg.hydration.Message == "" {
		m.greet()
	}
	return m.refreshIfRemote()
}

func (m *Model) showLogin() {
	m.screen = screenLogin
	m.mode = modeNormal
	m.loginFocus = 0
	m.password.Reset()
	m.password.Blur()
	m.username.Focus()
	if u := m.svc.User(); u != nil && m.username.Value() == "" {
		m.username.SetValue(u.Username)
	}
}

func (m *Model) greet() {
	if u := m.svc.User(); u != nil {
		m.setStatus(fmt.Sprintf("Olá, %s", displayName(*u)), false)
		return
	}
	if len(m.svc.Lists()) == 0 {
		m.setStatus("Bem-vindo. Pressione 'a' em Listas para criar sua primeira lista.", false)
	}
}

func (m *Model) refreshIfRemote() tea.Cmd {
	if !m.svc.Refreshable() {
		return nil
	}
	return m.run("Dados sincronizados", "Erro ao carregar dados", "", func(ctx context.Context) error {
		return m.svc.Refresh(ctx)
	})
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.setLoginFocus(1 - m.loginFocus)
		return nil
	case "enter":
		if m.loginFocus == 0 && m.password.Value() == "" {
			m.setLoginFocus(1)
			return nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return cmd
}

func (m *Model) setLoginFocus(i int) {
	m.loginFocus = i
	if i == 0 {
		m.password.Blur()
		m.username.Focus()
		return
	}
	m.username.Blur()
	m.password.Focus()
}

func (m *Model) submitLogin() tea.Cmd {
	if m.loggingIn || m.auth == nil {
		return nil
	}
	username := m.username.Value()
	password := m.password.Value()
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		m.setStatus(auth.ErrCredentialsRequired.Error(), true)
		return nil
	}
	m.loggingIn = true
	m.setStatus("Entrando...", false)
	am := m.auth
	ctx := m.ctx
	login := func() tea.Msg {
		session, err := am.Login(ctx, username, password)
		return loginMsg{session: session, err: err}
	}
	return tea.Batch(login, m.startSpinner())
}

func (m *Model) onLogin(msg loginMsg) tea.Cmd {
	m.loggingIn = false
	if msg.err != nil {
		m.setStatus("Falha ao entrar: "+msg.err.Error(), true)
		return nil
	}
	m.password.Reset()
	u := msg.session.User
	m.svc.SetUser(&u)
	m.screen = screenMain
	m.focus = focusLists
	m.taskCursor = 0
	m.ensureSelection()
	m.greet()
	m.logger.Info("ui signed in", "user", u.Username)
	return m.refreshIfRemote()
}

func (m *Model) updateMain(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeAddList, modeRenameList, modeAddTask, modeEditTask, modeEditDescription, modeEditDue:
		return m.updateInputMode(msg)
	case modeConfirmDelete, modeConfirmForce, modeConfirmReset:
		return m.updateConfirmMode(msg)
	}
	cmd := m.updateNormalMode(msg)
	m.ensureSelection()
	return cmd
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) tea.Cmd {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.showHelp = false
			m.setStatus("Atalhos ocultos", false)
			return nil
		}
		if !key.Matches(msg, m.keys.Quit) {
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusLists {
			m.focus = focusTasks
		} else {
			m.focus = focusLists
		}
		m.setStatus(fmt.Sprintf("Foco em %s", m.focus.String()), false)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Add):
		m.startAdd()
	case key.Matches(msg, m.keys.Rename):
		m.startRenameList()
	case key.Matches(msg, m.keys.Edit):
		m.startTaskInput(modeEditTask)
	case key.Matches(msg, m.keys.Describe):
		m.startTaskInput(modeEditDescription)
	case key.Matches(msg, m.keys.Due):
		if m.svc.Refreshable() {
			m.setStatus("O servidor remoto não guarda datas de entrega", true)
			return nil
		}
		m.startTaskInput(modeEditDue)
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleTaskDone()
	case key.Matches(msg, m.keys.Delete):
		m.startDeleteConfirm()
	case key.Matches(msg, m.keys.Copy):
		return m.copyPendingTasks()
	case key.Matches(msg, m.keys.Refresh):
		if !m.svc.Refreshable() {
			m.setStatus("Recarregar só está disponível com o servidor remoto", false)
			return nil
		}
		m.setStatus("Recarregando...", false)
		return m.refreshIfRemote()
	case key.Matches(msg, m.keys.Reset):
		m.mode = modeConfirmReset
	case key.Matches(msg, m.keys.Logout):
		m.logout()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.setStatus("Atalhos abertos (pressione ? ou Esc para fechar)", false)
	}
	return nil
}

func (m *Model) updateInputMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.closeInput()
		m.setStatus("Cancelado", false)
		return nil
	case "enter":
		return m.applyInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) tea.Cmd {
	switch strings.ToLower(msg.String()) {
	case "y", "s":
		return m.confirm()
	case "n", "esc", "enter", "ctrl+c":
		m.clearConfirm()
		m.setStatus("Ação cancelada", false)
	}
	return nil
}

func (m *Model) openInput(mode uiMode, value string, limit int) {
	m.mode = mode
	m.input.Reset()
	m.input.CharLimit = limit
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) applyInput() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	mode := m.mode
	switch mode {
	case modeAddList:
		if text == "" {
			m.setStatus("Nome da lista não pode ser vazio", true)
			return nil
		}
		m.closeInput()
		m.taskCursor = 0
		return m.run("Lista criada", "Erro ao criar lista", "", func(ctx context.Context) error {
			_, err := m.svc.CreateList(ctx, text)
			return err
		})
	case modeRenameList:
		if text == "" {
			m.setStatus("Nome da lista não pode ser vazio", true)
			return nil
		}
		list, ok := m.svc.CurrentList()
		m.closeInput()
		if !ok {
			m.setStatus("Nenhuma lista selecionada", true)
			return nil
		}
		return m.run("Lista renomeada", "Erro ao renomear lista", "", func(ctx context.Context) error {
			_, err := m.svc.RenameList(ctx, list.ID, text)
			return err
		})
	case modeAddTask:
		if text == "" {
			m.setStatus("Título da tarefa não pode ser vazio", true)
			return nil
		}
		m.closeInput()
		return m.runTask("Tarefa criada", "Erro ao criar tarefa", func(ctx context.Context) (model.Task, error) {
			return m.svc.AddTask(ctx, text)
		})
	}

	task, ok := m.selectedTask()
	m.closeInput()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return nil
	}
	switch mode {
	case modeEditTask:
		if text == "" {
			m.setStatus("Título da tarefa não pode ser vazio", true)
			return nil
		}
		return m.runTask("Tarefa atualizada", "Erro ao editar tarefa", func(ctx context.Context) (model.Task, error) {
			return m.svc.EditTask(ctx, task.ID, text)
		})
	case modeEditDescription:
		return m.runTask("Descrição atualizada", "Erro ao editar descrição", func(ctx context.Context) (model.Task, error) {
			return m.svc.UpdateTask(ctx, task.ID, model.TaskPatch{Description: &text})
		})
	case modeEditDue:
		due, err := time.ParseInLocation(dueLayout, text, time.Local)
		if err != nil {
			m.setStatus("Data inválida; use AAAA-MM-DD", true)
			return nil
		}
		return m.runTask("Prazo definido", "Erro ao definir prazo", func(ctx context.Context) (model.Task, error) {
			return m.svc.UpdateTask(ctx, task.ID, model.TaskPatch{DueDate: &due})
		})
	}
	return nil
}

// run executes fn off the UI goroutine and reports through opMsg.
func (m *Model) run(success, failure, taskID string, fn func(ctx context.Context) error) tea.Cmd {
	m.busy++
	ctx := m.ctx
	op := func() tea.Msg {
		return opMsg{success: success, failure: failure, taskID: taskID, err: fn(ctx)}
	}
	return tea.Batch(op, m.startSpinner())
}

func (m *Model) runTask(success, failure string, fn func(ctx context.Context) (model.Task, error)) tea.Cmd {
	m.busy++
	ctx := m.ctx
	op := func() tea.Msg {
		task, err := fn(ctx)
		return opMsg{success: success, failure: failure, taskID: task.ID, err: err}
	}
	return tea.Batch(op, m.startSpinner())
}

func (m *Model) onOp(msg opMsg) tea.Cmd {
	if m.busy > 0 {
		m.busy--
	}
	if msg.err != nil {
		if remote.IsUnauthorized(msg.err) && m.auth != nil {
			m.logout()
			m.setStatus("Sessão expirada; entre novamente", true)
			return nil
		}
		m.setStatus(msg.failure+": "+msg.err.Error(), true)
		m.ensureSelection()
		return nil
	}
	if msg.taskID != "" {
		m.taskCursor = m.indexOfTask(msg.taskID)
	}
	m.ensureSelection()
	if msg.success != "" {
		m.setStatus(msg.success, false)
	}
	return nil
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) needsSpinner() bool {
	return m.screen == screenLoading || m.loggingIn || m.busy > 0 || m.svc.Status().Loading
}

func (m *Model) moveCursor(delta int) {
	if m.focus == focusLists {
		lists := m.svc.Lists()
		if len(lists) == 0 {
			return
		}
		next := clamp(m.listIndex()+delta, 0, len(lists)-1)
		if lists[next].ID != m.svc.CurrentListID() {
			m.svc.SelectList(lists[next].ID)
			m.taskCursor = 0
		}
		return
	}
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		return
	}
	m.taskCursor = clamp(m.taskCursor+delta, 0, len(tasks)-1)
}

func (m *Model) startAdd() {
	if m.focus == focusLists {
		m.openInput(modeAddList, "", model.MaxListNameLen)
		return
	}
	if _, ok := m.svc.CurrentList(); !ok {
		m.setStatus("Crie uma lista antes de adicionar tarefas", true)
		return
	}
	m.openInput(modeAddTask, "", model.MaxTaskTitleLen)
}

func (m *Model) startRenameList() {
	if m.focus != focusLists {
		m.setStatus("Renomear lista: mude o foco para Listas (Tab)", false)
		return
	}
	list, ok := m.svc.CurrentList()
	if !ok {
		m.setStatus("Nenhuma lista selecionada", true)
		return
	}
	m.openInput(modeRenameList, list.Name, model.MaxListNameLen)
}

func (m *Model) startTaskInput(mode uiMode) {
	if m.focus != focusTasks {
		m.setStatus("Editar tarefa: mude o foco para Tarefas (Tab)", false)
		return
	}
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return
	}
	switch mode {
	case modeEditTask:
		m.openInput(mode, task.Title, model.MaxTaskTitleLen)
	case modeEditDescription:
		m.openInput(mode, task.Description, model.MaxDescriptionLen)
	case modeEditDue:
		value := ""
		if task.DueDate != nil {
			value = task.DueDate.Local().Format(dueLayout)
		}
		m.openInput(mode, value, len(dueLayout))
	}
}

func (m *Model) toggleTaskDone() tea.Cmd {
	if m.focus != focusTasks {
		m.setStatus("Marcar tarefa: mude o foco para Tarefas (Tab)", false)
		return nil
	}
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return nil
	}
	success := "Tarefa concluída"
	if task.Done {
		success = "Tarefa reaberta"
	}
	return m.run(success, "Erro ao alternar tarefa", task.ID, func(ctx context.Context) error {
		return m.svc.ToggleTask(ctx, task.ID)
	})
}

func (m *Model) copyPendingTasks() tea.Cmd {
	if _, ok := m.svc.CurrentList(); !ok {
		m.setStatus("Nenhuma lista ativa", true)
		return nil
	}
	pending := m.svc.PendingTasks()
	parts := make([]string, 0, len(pending))
	for _, t := range pending {
		title := strings.TrimSpace(strings.ReplaceAll(t.Title, "\n", " "))
		if title == "" {
			continue
		}
		parts = append(parts, "- "+title)
	}
	if len(parts) == 0 {
		m.setStatus("Sem tarefas pendentes para copiar", false)
		return nil
	}
	payload := strings.Join(parts, "\n")
	copyFn := m.copy
	return func() tea.Msg {
		return clipboardMsg{count: len(parts), err: copyFn(payload)}
	}
}

func (m *Model) startDeleteConfirm() {
	if m.focus == focusLists {
		list, ok := m.svc.CurrentList()
		if !ok {
			m.setStatus("Nenhuma lista selecionada", true)
			return
		}
		name := list.Name
		if n := m.svc.TaskCount(list.ID); n > 0 {
			name = fmt.Sprintf("%s (%d tarefas)", list.Name, n)
		}
		m.mode = modeConfirmDelete
		m.confirmKind = deleteList
		m.confirmID = list.ID
		m.confirmName = name
		return
	}

	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return
	}
	m.mode = modeConfirmDelete
	m.confirmKind = deleteTask
	m.confirmID = task.ID
	m.confirmName = task.Title
}

func (m *Model) confirm() tea.Cmd {
	switch m.mode {
	case modeConfirmReset:
		m.clearConfirm()
		m.svc.Reset()
		m.taskCursor = 0
		m.ensureSelection()
		m.setStatus("Dados restaurados para o padrão", false)
		return nil
	case modeConfirmForce:
		id := m.confirmID
		m.clearConfirm()
		return m.run("Lista e tarefas excluídas", "Erro ao excluir lista", "", func(ctx context.Context) error {
			return m.svc.DeleteList(ctx, id, app.DeleteListOptions{Force: true})
		})
	}

	id, kind := m.confirmID, m.confirmKind
	switch kind {
	case deleteList:
		if n := m.svc.TaskCount(id); n > 0 {
			m.mode = modeConfirmForce
			m.confirmName = fmt.Sprintf("A lista possui %d tarefas. Excluir mesmo assim?", n)
			return nil
		}
		m.clearConfirm()
		return m.run("Lista excluída", "Erro ao excluir lista", "", func(ctx context.Context) error {
			err := m.svc.DeleteList(ctx, id, app.DeleteListOptions{})
			if errors.Is(err, app.ErrListHasTasks) {
				return fmt.Errorf("%w (pressione d novamente)", err)
			}
			return err
		})
	case deleteTask:
		m.clearConfirm()
		return m.run("Tarefa excluída", "Erro ao excluir tarefa", "", func(ctx context.Context) error {
			return m.svc.RemoveTask(ctx, id)
		})
	}
	m.clearConfirm()
	return nil
}

func (m *Model) clearConfirm() {
	m.mode = modeNormal
	m.confirmKind = deleteNone
	m.confirmID = ""
	m.confirmName = ""
}

func (m *Model) logout() {
	if m.auth == nil {
		m.setStatus("Sem sessão para encerrar", false)
		return
	}
	m.auth.Logout()
	m.svc.SetUser(nil)
	m.showHelp = false
	m.taskCursor = 0
	m.showLogin()
	m.setStatus("Sessão encerrada", false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) ensureSelection() {
	if len(m.svc.Lists()) == 0 {
		m.taskCursor = 0
		m.focus = focusLists
		return
	}
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		m.taskCursor = 0
		return
	}
	m.taskCursor = clamp(m.taskCursor, 0, len(tasks)-1)
}

func (m *Model) listIndex() int {
	current := m.svc.CurrentListID()
	for i, l := range m.svc.Lists() {
		if l.ID == current {
			return i
		}
	}
	return 0
}

// visibleTasks lists pending tasks first, then completed ones.
func (m *Model) visibleTasks() []model.Task {
	pending := m.svc.PendingTasks()
	return append(pending, m.svc.CompletedTasks()...)
}

func (m *Model) selectedTask() (model.Task, bool) {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	if m.taskCursor < 0 || m.taskCursor >= len(tasks) {
		m.taskCursor = 0
	}
	return tasks[m.taskCursor], true
}

func (m *Model) indexOfTask(taskID string) int {
	tasks := m.visibleTasks()
	for i, t := range tasks {
		if t.ID == taskID {
			return i
		}
	}
	if len(tasks) == 0 {
		return 0
	}
	return clamp(m.taskCursor, 0, len(tasks)-1)
}

func displayName(u model.User) string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
