package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"tasklist/model"
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "carregando..."
	}
	switch m.screen {
	case screenLoading:
		return m.viewLoading()
	case screenLogin:
		return m.viewLogin()
	}
	return m.viewMain()
}

func (m *Model) viewLoading() string {
	text := m.spinner.View() + " Carregando dados..."
	return lipgloss.Place(m.viewportWidth(), m.height, lipgloss.Center, lipgloss.Center, text)
}

func (m *Model) viewLogin() string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	field := func(i int, name string, input string) string {
		marker := "  "
		style := lipgloss.NewStyle()
		if m.loginFocus == i {
			marker = "▸ "
			style = style.Foreground(lipgloss.Color("229")).Bold(true)
		}
		return style.Render(marker+name) + "\n    " + input
	}

	title := lipgloss.NewStyle().Bold(true).Render("tasklist • entrar")
	rows := []string{
		title,
		"",
		field(0, "Usuário", m.username.View()),
		"",
		field(1, "Senha", m.password.View()),
		"",
	}
	if m.loggingIn {
		rows = append(rows, m.spinner.View()+" Entrando...")
	} else {
		rows = append(rows, label.Render("Enter entra • Tab alterna campo • Esc sai"))
	}
	if m.statusErr {
		rows = append(rows, "", lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.status))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 3).
		Width(48).
		Render(strings.Join(rows, "\n"))
	return lipgloss.Place(m.viewportWidth(), m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) viewMain() string {
	title := lipgloss.NewStyle().Bold(true).Render("tasklist")
	summary := fmt.Sprintf("foco: %s • dados: %s", m.focus.String(), m.svc.Backend().Name())
	if u := m.svc.User(); u != nil {
		summary += " • " + displayName(*u)
	}
	status := m.svc.Status()
	if status.Loading || m.busy > 0 {
		summary += " • " + m.spinner.View() + " sincronizando"
	} else if status.LastError != nil {
		summary += " • última sincronização falhou"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  "+summary),
	)

	viewW := m.viewportWidth()
	const paneGap = 1
	const rightInset = 6
	outerPaneW := viewW - rightInset
	if outerPaneW < 40 {
		outerPaneW = viewW
	}
	innerPaneW := outerPaneW - 2
	if innerPaneW < 20 {
		innerPaneW = outerPaneW
	}

	panelH := m.height - 6
	if panelH < 8 {
		panelH = 8
	}
	innerPaneH := panelH - 2
	if innerPaneH < 6 {
		innerPaneH = 6
	}

	leftW, rightW := m.paneWidths(innerPaneW, paneGap)
	split := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderListsPanel(leftW, innerPaneH),
		lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("│"),
		m.renderTasksPanel(rightW, innerPaneH),
	)

	frameColor := lipgloss.Color("240")
	if m.mode == modeNormal {
		frameColor = lipgloss.Color("39")
	}
	panes := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(outerPaneW).
		Height(panelH).
		Render(split)

	if outerPaneW < viewW {
		panes = lipgloss.JoinHorizontal(lipgloss.Top, panes, strings.Repeat(" ", viewW-outerPaneW))
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	rightHint := "? atalhos"
	if m.showHelp {
		rightHint = "Esc/? fechar atalhos"
	}
	footerLine := m.renderFooter(m.status, statusStyle, rightHint)

	if m.showHelp {
		popupW := viewW - 8
		if popupW > 96 {
			popupW = 96
		}
		if popupW < 40 {
			popupW = viewW - 2
		}
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(popupW))
	}

	parts := []string{header}
	if len(m.svc.Lists()) == 0 && m.mode == modeNormal {
		parts = append(parts, m.renderOnboarding(viewW))
	}
	parts = append(parts, panes, footerLine)
	if prompt := m.promptLine(); prompt != "" && !m.showHelp {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(viewW).Render(prompt))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) promptLine() string {
	switch m.mode {
	case modeAddList:
		return "Nova lista: " + m.input.View()
	case modeRenameList:
		return "Renomear lista: " + m.input.View()
	case modeAddTask:
		return "Nova tarefa: " + m.input.View()
	case modeEditTask:
		return "Editar tarefa: " + m.input.View()
	case modeEditDescription:
		return "Descrição: " + m.input.View()
	case modeEditDue:
		return "Prazo (AAAA-MM-DD): " + m.input.View()
	case modeConfirmDelete:
		target := "tarefa"
		if m.confirmKind == deleteList {
			target = "lista"
		}
		return fmt.Sprintf("Excluir %s \"%s\"? [y/N]", target, m.confirmName)
	case modeConfirmForce:
		return m.confirmName + " [y/N]"
	case modeConfirmReset:
		return "Apagar todos os dados salvos e restaurar o padrão? [y/N]"
	}
	return ""
}

func (m *Model) viewportWidth() int {
	if m.width <= 0 {
		return 1
	}
	// Reservamos 1 coluna para evitar clipping/wrap no último caractere
	// em alguns terminais (borda direita "sumindo").
	if m.width > 1 {
		return m.width - 1
	}
	return m.width
}

func (m *Model) paneWidths(total, gap int) (int, int) {
	if total <= 0 {
		return 24, 30
	}
	if gap < 0 {
		gap = 0
	}

	minLeft := 20
	minRight := 30
	if total < minLeft+minRight+gap {
		left := total / 3
		if left < 12 {
			left = 12
		}
		right := total - left - gap
		if right < 12 {
			right = 12
			left = total - right - gap
			if left < 10 {
				left = 10
			}
		}
		return left, right
	}

	left := total / 4
	if left < 22 {
		left = 22
	}
	if left > 34 {
		left = 34
	}

	right := total - left - gap
	if right < minRight {
		right = minRight
		left = total - right - gap
	}
	if left < minLeft {
		left = minLeft
		right = total - left - gap
	}

	return left, right
}

func (m *Model) renderFooter(statusText string, statusStyle lipgloss.Style, rightHint string) string {
	left := strings.TrimSpace(statusText)
	right := strings.TrimSpace(rightHint)
	if left == "" {
		left = "Pronto"
	}

	leftW := utf8.RuneCountInString(left)
	rightW := utf8.RuneCountInString(right)
	width := m.viewportWidth()

	if leftW+rightW+1 > width {
		maxLeft := width - rightW - 1
		if maxLeft < 8 {
			maxLeft = 8
		}
		left = truncateRunes(left, maxLeft)
		leftW = utf8.RuneCountInString(left)
	}

	padding := width - leftW - rightW
	if padding < 1 {
		padding = 1
	}

	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := statusStyle.Render(left) + strings.Repeat(" ", padding) + rightStyle.Render(right)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Atalhos")
	body := m.help.FullHelpView(m.keys.FullHelp())
	note := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).
		Render("Listas: a cria • r renomeia • d exclui\nTarefas: a cria • e/E/p editam • x conclui • y copia")

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2)
	return style.Width(width).Render(strings.Join([]string{title, "", body, "", note}, "\n"))
}

func (m *Model) renderOnboarding(width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)
	text := "Primeiro uso:\n1) Em Listas: 'a' para criar lista\n2) Tab para Tarefas e 'a' para adicionar\n3) 'x' conclui, 'y' copia as pendentes"
	return style.Width(width).Render(text)
}

func (m *Model) renderListsPanel(width, height int) string {
	lists := m.svc.Lists()
	current := m.svc.CurrentListID()

	lines := make([]string, 0, len(lists)+2)
	lines = append(lines, panelTitleStyled("Listas", m.focus == focusLists))
	if len(lists) == 0 {
		lines = append(lines, mutedStyle().Render("Sem listas. Pressione 'a' para criar a primeira."))
	}
	for _, l := range lists {
		selected := l.ID == current
		cursor := " "
		if selected {
			cursor = "▸"
		}
		style := lipgloss.NewStyle()
		if selected {
			style = style.Bold(true)
			if m.focus == focusLists {
				style = style.Foreground(lipgloss.Color("229"))
			}
		}
		name := style.Render(fmt.Sprintf("%s %s", cursor, truncateRunes(l.Name, width-8)))
		lines = append(lines, name+" "+mutedStyle().Render(fmt.Sprintf("(%d)", len(l.TaskIDs))))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTasksPanel(width, height int) string {
	list, hasList := m.svc.CurrentList()
	pending := m.svc.PendingTasks()
	done := m.svc.CompletedTasks()

	title := "Tarefas"
	if hasList {
		title = fmt.Sprintf("Tarefas — %s", list.Name)
	}
	lines := make([]string, 0, len(pending)+len(done)+5)
	lines = append(lines, panelTitleStyled(title, m.focus == focusTasks))

	switch {
	case !hasList:
		lines = append(lines, mutedStyle().Render("Sem lista ativa. Vá em Listas e pressione 'a'."))
	case len(pending)+len(done) == 0:
		lines = append(lines, mutedStyle().Render("Lista vazia. Pressione 'a' para adicionar tarefa."))
	default:
		lines = append(lines, mutedStyle().Render(fmt.Sprintf("%d pendentes • %d concluídas", len(pending), len(done))))
		for i, t := range pending {
			lines = append(lines, m.renderTask(t, i, width)...)
		}
		if len(done) > 0 {
			lines = append(lines, "", mutedStyle().Render("Concluídas"))
			for i, t := range done {
				lines = append(lines, m.renderTask(t, len(pending)+i, width)...)
			}
		}
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderTask(t model.Task, index, width int) []string {
	selected := index == m.taskCursor
	cursor := " "
	if selected {
		cursor = "▸"
	}
	check := "[ ]"
	if t.Done {
		check = "[x]"
	}

	textStyle := lipgloss.NewStyle()
	if t.Done {
		textStyle = textStyle.Faint(true)
	}
	if selected {
		textStyle = textStyle.Bold(true)
		if m.focus == focusTasks {
			textStyle = textStyle.Foreground(lipgloss.Color("229"))
		}
	}

	line := textStyle.Render(fmt.Sprintf("%s %s %s", cursor, check, truncateRunes(t.Title, width-8)))
	if t.DueDate != nil {
		line += " " + dueStyle(t).Render("até "+t.DueDate.Local().Format("02/01"))
	}
	out := []string{line}
	if selected && strings.TrimSpace(t.Description) != "" {
		out = append(out, mutedStyle().Render("      "+truncateRunes(t.Description, width-8)))
	}
	return out
}

func dueStyle(t model.Task) lipgloss.Style {
	if !t.Done && t.DueDate != nil && t.DueDate.Before(startOfToday()) {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
}

func startOfToday() time.Time {
	now := time.Now()
	y, mo, d := now.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
}

func mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
}

func panelTitleStyled(title string, active bool) string {
	base := lipgloss.NewStyle().Bold(true)
	if !active {
		return base.Render(title)
	}
	text := base.Foreground(lipgloss.Color("229")).Render(title)
	marker := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("*")
	return lipgloss.JoinHorizontal(lipgloss.Left, text, " ", marker)
}
