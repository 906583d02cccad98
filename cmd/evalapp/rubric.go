package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/rubric"
)

var (
	newSectionKey      string
	newSectionWeight   float64
	newCriterionKey    string
	newCriterionWeight float64
	newCriterionBonus  bool
)

func newRubricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Show or edit the rubric",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the rubric as YAML",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, _ []string) error {
			data, err := yaml.Marshal(s.ws.Config())
			if err != nil {
				return fmt.Errorf("failed to encode rubric: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the rubric as YAML in $EDITOR",
		Args:  cobra.NoArgs,
		RunE:  withSession(runRubricEditCmd),
	}

	addSectionCmd := &cobra.Command{
		Use:   "add-section TITLE",
		Short: "Append a section; the key defaults to the slug of TITLE",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			var key string
			err := s.ws.EditConfig(s.ctx, func(cfg *model.EvaluationConfig) error {
				var err error
				key, err = rubric.AddSection(cfg, newSectionKey, args[0], newSectionWeight)
				return err
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		}),
	}
	addSectionCmd.Flags().StringVar(&newSectionKey, "key", "", "section key")
	addSectionCmd.Flags().Float64Var(&newSectionWeight, "weight", 0, "section weight")

	addCriterionCmd := &cobra.Command{
		Use:   "add-criterion SECTION TITLE",
		Short: "Append a criterion to a section",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			var key string
			err := s.ws.EditConfig(s.ctx, func(cfg *model.EvaluationConfig) error {
				var err error
				key, err = rubric.AddCriterion(cfg, args[0], newCriterionKey, args[1], newCriterionWeight, newCriterionBonus)
				return err
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		}),
	}
	addCriterionCmd.Flags().StringVar(&newCriterionKey, "key", "", "criterion key")
	addCriterionCmd.Flags().Float64Var(&newCriterionWeight, "weight", 0, "criterion weight within the section")
	addCriterionCmd.Flags().BoolVar(&newCriterionBonus, "bonus", false, "score the criterion as a bonus")

	addOptionCmd := &cobra.Command{
		Use:   "add-option SECTION CRITERION SCORE TEXT",
		Short: "Add an answer option to a criterion",
		Args:  cobra.ExactArgs(4),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			score, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[2], err)
			}
			return s.ws.EditConfig(s.ctx, func(cfg *model.EvaluationConfig) error {
				return rubric.AddOption(cfg, args[0], args[1], model.Option{Score: score, Text: args[3]})
			})
		}),
	}

	deleteSectionCmd := &cobra.Command{
		Use:   "delete-section SECTION",
		Short: "Remove a section",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			return s.ws.EditConfig(s.ctx, func(cfg *model.EvaluationConfig) error {
				return rubric.DeleteSection(cfg, args[0])
			})
		}),
	}

	deleteCriterionCmd := &cobra.Command{
		Use:   "delete-criterion SECTION CRITERION",
		Short: "Remove a criterion",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			return s.ws.EditConfig(s.ctx, func(cfg *model.EvaluationConfig) error {
				return rubric.DeleteCriterion(cfg, args[0], args[1])
			})
		}),
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in rubric",
		Args:  cobra.NoArgs,
		RunE: withSession(func(_ *cobra.Command, s *session, _ []string) error {
			return s.ws.ResetConfig(s.ctx)
		}),
	}

	cmd.AddCommand(showCmd, editCmd, addSectionCmd, addCriterionCmd, addOptionCmd, deleteSectionCmd, deleteCriterionCmd, resetCmd)
	return cmd
}

func runRubricEditCmd(_ *cobra.Command, s *session, _ []string) error {
	data, err := yaml.Marshal(s.ws.Config())
	if err != nil {
		return fmt.Errorf("failed to encode rubric: %w", err)
	}
	edited, err := editInEditor("rubric-*.yaml", data)
	if err != nil {
		return err
	}
	cfg, err := rubric.Parse(edited)
	if err != nil {
		return err
	}
	if cfg.Sections.Len() == 0 {
		return fmt.Errorf("rubric has no sections")
	}
	return s.ws.UpdateConfig(s.ctx, cfg)
}

// editInEditor round-trips data through a temporary file opened in $EDITOR.
func editInEditor(pattern string, data []byte) ([]byte, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil {
			logging.Errf("failed to remove %s: %v\n", path, rerr)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := openEditor(path); err != nil {
		return nil, err
	}
	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}
	return edited, nil
}
