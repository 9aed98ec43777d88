package menu

import (
	"context"
	"errors"
	"io"

	"github.com/pterm/pterm"
)

// Actions are the operations reachable from the menus. Each returns an
// error that is printed before the menu is shown again.
type Actions interface {
	DiagRemote(ctx context.Context, host string) error
	DiagMySQL(ctx context.Context) error
	Dump(ctx context.Context) error
	ExportCSV(ctx context.Context, table string) error
	ListArtifacts(ctx context.Context) error
	Verify(ctx context.Context, name string) error
	AuditNetwork(ctx context.Context, subnet string) error
	AuditSystem(ctx context.Context, host string) error
}

var mainOptions = []Option{
	{"1", "Module 1 - Diagnostic (AD/DNS/MySQL/OS)"},
	{"2", "Module 2 - Sauvegarde WMS (dump SQL, export CSV)"},
	{"3", "Module 3 - Audit réseau (scan SSH)"},
	{"9", "Quitter"},
}

// Run shows the main menu until "9" is chosen or the input ends.
func Run(ctx context.Context, m *Menu, a Actions) error {
	for {
		key, _, err := m.Choose("Menu principal", mainOptions, false)
		if err != nil {
			return quit(m, err)
		}
		switch key {
		case "9":
			return quit(m, nil)
		case "1":
			err = m.diag(ctx, a)
		case "2":
			err = m.backup(ctx, a)
		case "3":
			err = m.audit(ctx, a)
		}
		if err != nil {
			return quit(m, err)
		}
	}
}

func quit(m *Menu, err error) error {
	m.println("\nAu revoir.\n")
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// sub runs one sub-menu; handle reports whether the key was consumed.
func (m *Menu) sub(ctx context.Context, title string, opts []Option, handle func(key string) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, ok, err := m.Choose(title, opts, true)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := handle(key); err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			m.println(pterm.Error.Sprint(err.Error()))
		}
	}
}

func (m *Menu) diag(ctx context.Context, a Actions) error {
	opts := []Option{
		{"1", "Diagnostic d'un serveur distant (AD/DNS, ressources OS)"},
		{"2", "Tester l'accès MySQL"},
	}
	return m.sub(ctx, "Module 1 - Diagnostic", opts, func(key string) error {
		switch key {
		case "1":
			host, ok, err := m.AskRequired("Hôte > ", "Hôte vide.")
			if err != nil || !ok {
				return err
			}
			return a.DiagRemote(ctx, host)
		case "2":
			return a.DiagMySQL(ctx)
		}
		return nil
	})
}

func (m *Menu) backup(ctx context.Context, a Actions) error {
	opts := []Option{
		{"1", "Sauvegarde BDD au format SQL (dump)"},
		{"2", "Export d'une table au format CSV"},
		{"3", "Lister les sauvegardes"},
		{"4", "Vérifier un fichier"},
	}
	return m.sub(ctx, "Module 2 - Sauvegarde WMS", opts, func(key string) error {
		switch key {
		case "1":
			return a.Dump(ctx)
		case "2":
			table, ok, err := m.AskRequired("Nom de la table > ", "Table vide.")
			if err != nil || !ok {
				return err
			}
			return a.ExportCSV(ctx, table)
		case "3":
			return a.ListArtifacts(ctx)
		case "4":
			name, ok, err := m.AskRequired("Nom du fichier à vérifier > ", "Nom vide.")
			if err != nil || !ok {
				return err
			}
			return a.Verify(ctx, name)
		}
		return nil
	})
}

func (m *Menu) audit(ctx context.Context, a Actions) error {
	opts := []Option{
		{"1", "Scanner un réseau"},
		{"2", "Identifier un hôte"},
	}
	return m.sub(ctx, "Module 3 - Audit réseau", opts, func(key string) error {
		switch key {
		case "1":
			subnet, err := m.Ask("Sous-réseau CIDR (vide = réseau local) > ")
			if err != nil {
				return err
			}
			return a.AuditNetwork(ctx, subnet)
		case "2":
			host, ok, err := m.AskRequired("Hôte > ", "Hôte vide.")
			if err != nil || !ok {
				return err
			}
			return a.AuditSystem(ctx, host)
		}
		return nil
	})
}
