package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/stagewalk/internal/ctxlog"
	"github.com/vk/stagewalk/internal/expand"
	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
	"github.com/vk/stagewalk/internal/tabular"
	"github.com/vk/stagewalk/internal/workspace"
)

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	reg    *stage.Registry
	model  *model.Model
}

// NewApp constructs the application: it loads the workspace and definition
// files, registers every project, reference, stage and pipeline, and runs
// each rule through the expansion chain. A failure to load configuration
// is a fatal startup error and panics.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reg := stage.NewRegistry()
	reg.SetLogger(logger)

	if err := applyWorkspace(cfg.WorkspacePath, reg); err != nil {
		panic(fmt.Errorf("failed to load workspace: %w", err))
	}
	logger.Debug("workspace applied")

	m, err := model.NewLoader().Load(ctx, cfg.DefsPath)
	if err != nil {
		panic(fmt.Errorf("failed to load definitions: %w", err))
	}

	if err := registerDefinitions(ctx, m, reg); err != nil {
		panic(fmt.Errorf("failed to register definitions: %w", err))
	}
	logger.Debug("definitions registered",
		"stages", len(m.Stages), "pipelines", len(m.Pipelines))

	return &App{outW: outW, logger: logger, reg: reg, model: m}
}

// Registry returns the application's stage registry, for tests.
func (a *App) Registry() *stage.Registry { return a.reg }

// applyWorkspace loads the workspace file and registers its projects and
// references. A missing workspace file is not an error; paths then simply
// cannot resolve a project.
func applyWorkspace(path string, reg *stage.Registry) error {
	cfg, err := workspace.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for name, pc := range cfg.Projects {
		table, err := loadProjectTable(name, cfg, pc)
		if err != nil {
			return err
		}
		project, err := stage.NewProject(name, table, pc.IDCol, pc.Outputs)
		if err != nil {
			return err
		}
		if err := reg.AddProject(project); err != nil {
			return err
		}
	}
	for name, rc := range cfg.References {
		ref := stage.NewReference(name, rc.Dir, rc.Files, rc.Group)
		if err := reg.AddReference(ref); err != nil {
			return err
		}
	}
	return nil
}

func loadProjectTable(name string, cfg *workspace.Config, pc workspace.ProjectConfig) (*tabular.Table, error) {
	if pc.Data != "" {
		return tabular.FromFile(name, cfg.DataPath(pc))
	}
	columns, rows, err := workspace.TableColumns(pc.Table)
	if err != nil {
		return nil, fmt.Errorf("project '%s': %w", name, err)
	}
	return tabular.New(name, columns, rows)
}

// registerDefinitions turns the loaded model into live registry state:
// pipelines and stages are registered, and every rule is expanded within
// its stage's definition scope.
func registerDefinitions(ctx context.Context, m *model.Model, reg *stage.Registry) error {
	for _, def := range m.Pipelines {
		members := make([]stage.PipelineMember, len(def.Stages))
		for i, s := range def.Stages {
			members[i] = stage.PipelineMember{Name: s.Name, Hide: s.Hide}
		}
		params, err := buildParams(def.Name, def.Params)
		if err != nil {
			return err
		}
		p, err := stage.NewPipeline(def.Name, members, params, def.Hide)
		if err != nil {
			return err
		}
		if err := reg.AddPipeline(p); err != nil {
			return err
		}
	}

	engine := expand.NewDefaultEngine(reg, m.Rules, nil)

	for _, def := range m.Stages {
		st := stage.NewStage(def.Name, def.AltName)
		st.Doc = def.Doc
		st.Env = def.Env
		st.Source = def.Source
		params, err := buildParams(def.Name, def.Params)
		if err != nil {
			return err
		}
		for _, p := range params {
			if err := st.AddParam(p); err != nil {
				return err
			}
		}
		if def.Require != nil {
			st.Require(def.Require)
		}
		if err := reg.RegisterStage(st); err != nil {
			return err
		}

		scope, err := reg.BeginStage(st)
		if err != nil {
			return err
		}
		for _, rule := range def.Rules {
			if err := engine.ExpandRule(ctx, rule); err != nil {
				reg.EndStage(scope)
				return err
			}
		}
		if err := reg.EndStage(scope); err != nil {
			return err
		}
	}
	return nil
}

func buildParams(owner string, defs []model.ParamDef) ([]*stage.Param, error) {
	var params []*stage.Param
	for _, d := range defs {
		p, err := stage.NewParam(owner, stage.ParamKind(d.Type), d.Key, d.Name, d.Value, d.Default, d.Choices)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}
