package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/bundle"
	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/templates"
)

var (
	exportFormat        string
	templateDescription string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write rubric, answers and grade scale to FILE (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runExportCmd),
	}
	cmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from file extension)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, s *session, args []string) error {
	path := args[0]
	format := bundle.FormatForPath(path)
	if exportFormat != "" {
		f, err := bundle.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		format = f
	}
	data, err := s.ws.Export(format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, path, data)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace rubric, answers and grade scale from an exported FILE",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			warnings, err := s.ws.Import(s.ctx, data)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}
			for _, w := range warnings {
				logging.Errln("warning:", w)
			}
			return nil
		}),
	}
}

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage rubric templates",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and saved templates",
		Args:  cobra.NoArgs,
		RunE: withSession(func(_ *cobra.Command, s *session, _ []string) error {
			return s.out.Templates(s.ws.Templates().List())
		}),
	}

	applyCmd := &cobra.Command{
		Use:   "apply ID",
		Short: "Replace the rubric with a template and clear all answers",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			return s.ws.ApplyTemplate(s.ctx, args[0])
		}),
	}

	saveCmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save the current rubric as a template",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			t, err := s.ws.SaveTemplate(s.ctx, args[0], templateDescription)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return err
		}),
	}
	saveCmd.Flags().StringVar(&templateDescription, "description", "", "template description")

	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Overwrite a saved template with the current rubric",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			_, err := s.ws.Templates().Update(s.ctx, args[0], s.ws.Config())
			return err
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			err := s.ws.Templates().Delete(s.ctx, args[0])
			if errors.Is(err, templates.ErrDefaultTemplate) {
				return nil
			}
			return err
		}),
	}

	importCmd := &cobra.Command{
		Use:   "import GLOB",
		Short: "Import template files matching GLOB (** allowed)",
		Args:  cobra.ExactArgs(1),
		RunE:  withSession(runTemplateImportCmd),
	}

	exportCmd := &cobra.Command{
		Use:   "export ID FILE",
		Short: "Write a template to FILE as YAML (- for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			t, err := s.ws.Templates().Get(args[0])
			if err != nil {
				return err
			}
			data, err := templates.Encode(t)
			if err != nil {
				return err
			}
			return writeOutput(cmd, args[1], data)
		}),
	}

	cmd.AddCommand(listCmd, applyCmd, saveCmd, updateCmd, deleteCmd, importCmd, exportCmd)
	return cmd
}

func runTemplateImportCmd(cmd *cobra.Command, s *session, args []string) error {
	matches, err := doublestar.FilepathGlob(args[0], doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", args[0], err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no files match %q", args[0])
	}
	var errs []error
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", path, err))
			continue
		}
		t, err := templates.Decode(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		saved, err := s.ws.Templates().Import(s.ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", saved.ID, saved.Name); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func newGradesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Show or change the grade scale",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the grade scale",
		Args:  cobra.NoArgs,
		RunE: withSession(func(_ *cobra.Command, s *session, _ []string) error {
			return s.out.Grades(s.ws.Grades())
		}),
	}

	loadCmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Replace the grade scale with the thresholds in a YAML or JSON FILE",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var grades model.GradeConfig
			if err := yaml.Unmarshal(data, &grades); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(grades.Thresholds) == 0 {
				return fmt.Errorf("%s: no thresholds", args[0])
			}
			return s.ws.UpdateGrades(s.ctx, grades)
		}),
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default grade scale",
		Args:  cobra.NoArgs,
		RunE: withSession(func(_ *cobra.Command, s *session, _ []string) error {
			return s.ws.ResetGrades(s.ctx)
		}),
	}

	cmd.AddCommand(showCmd, loadCmd, resetCmd)
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
