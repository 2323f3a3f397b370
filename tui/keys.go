package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Focus    key.Binding
	Add      key.Binding
	Rename   key.Binding
	Edit     key.Binding
	Describe key.Binding
	Due      key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	Copy     key.Binding
	Refresh  key.Binding
	Reset    key.Binding
	Logout   key.Binding
	Help     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "sobe")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "desce")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "alterna foco")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "cria")),
		Rename:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "renomeia lista")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edita título")),
		Describe: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "edita descrição")),
		Due:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prazo")),
		Toggle:   key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "conclui/reabre")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "exclui")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copia pendentes")),
		Refresh:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "recarrega")),
		Reset:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "restaura padrão")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sai da conta")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "atalhos")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "fecha")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "sai")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Add, k.Toggle, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.Up, k.Down, k.Help, k.Back, k.Quit},
		{k.Add, k.Rename, k.Delete, k.Refresh, k.Reset, k.Logout},
		{k.Edit, k.Describe, k.Due, k.Toggle, k.Copy},
	}
}
