package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/evaluation"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/prose"
	"github.com/Marloto/evaluation-app/internal/scoring"
)

var (
	scoreJSON   bool
	textSection string
	textEdit    bool
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Show section scores, overall score and grade",
		Args:  cobra.NoArgs,
		RunE:  withSession(runScoreCmd),
	}
	cmd.Flags().BoolVar(&scoreJSON, "json", false, "print the result as JSON")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, s *session, _ []string) error {
	result := s.ws.Summary()
	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return s.out.Scores(result.Summary, result.Grade, result.HasGrade)
}

func newTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Print the assembled justification text",
		Args:  cobra.NoArgs,
		RunE:  withSession(runTextCmd),
	}
	cmd.Flags().StringVar(&textSection, "section", "", "only print this section")
	cmd.Flags().BoolVar(&textEdit, "edit", false, "edit the assembled text in $EDITOR")
	return cmd
}

func runTextCmd(_ *cobra.Command, s *session, _ []string) error {
	cfg := s.ws.Config()
	state := s.ws.State()
	if textEdit {
		return editText(s, cfg)
	}
	if textSection == "" {
		return s.out.Text(cfg.Sections, prose.FullText(cfg.Sections, state), state.Notes)
	}
	section, err := lookupSection(cfg, textSection)
	if err != nil {
		return err
	}
	var texts model.Map[string]
	texts.Set(textSection, prose.SectionText(section, state.Section(textSection)))
	return s.out.Text(cfg.Sections, texts, "")
}

// editText routes edits of the assembled text back into preambles and custom texts.
func editText(s *session, cfg model.EvaluationConfig) error {
	data, err := yaml.Marshal(prose.EditableTextData(cfg.Sections, s.ws.State()))
	if err != nil {
		return fmt.Errorf("failed to encode text: %w", err)
	}
	edited, err := editInEditor("text-*.yaml", data)
	if err != nil {
		return err
	}
	var sections []prose.SectionData
	if err := yaml.Unmarshal(edited, &sections); err != nil {
		return fmt.Errorf("failed to parse edited text: %w", err)
	}
	s.ws.Evaluation().ApplyTextEdits(s.ctx, cfg.Sections, sections)
	return nil
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set SECTION CRITERION SCORE|-",
		Short: "Select the option with SCORE for a criterion; - clears it",
		Args:  cobra.ExactArgs(3),
		RunE:  withSession(runSetCmd),
	}
}

func runSetCmd(_ *cobra.Command, s *session, args []string) error {
	criterion, err := lookupCriterion(s.ws.Config(), args[0], args[1])
	if err != nil {
		return err
	}
	if args[2] == "-" {
		s.ws.Evaluation().UpdateCriterion(s.ctx, args[0], args[1], evaluation.CriterionPatch{ClearScore: true})
		return nil
	}
	score, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", args[2], err)
	}
	if _, ok := criterion.OptionFor(score); !ok {
		return fmt.Errorf("criterion %q has no option with score %d", args[1], score)
	}
	s.ws.Evaluation().UpdateCriterion(s.ctx, args[0], args[1], evaluation.CriterionPatch{Score: &score})
	return nil
}

func newCustomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "custom SECTION CRITERION TEXT",
		Short: "Replace the option text of a criterion; an empty TEXT restores it",
		Args:  cobra.ExactArgs(3),
		RunE:  withSession(runCustomCmd),
	}
}

func runCustomCmd(_ *cobra.Command, s *session, args []string) error {
	if _, err := lookupCriterion(s.ws.Config(), args[0], args[1]); err != nil {
		return err
	}
	text := args[2]
	s.ws.Evaluation().UpdateCriterion(s.ctx, args[0], args[1], evaluation.CriterionPatch{CustomText: &text})
	return nil
}

func newPreambleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preamble SECTION TEXT",
		Short: "Set the introductory text of a section",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			if _, err := lookupSection(s.ws.Config(), args[0]); err != nil {
				return err
			}
			s.ws.Evaluation().UpdatePreamble(s.ctx, args[0], args[1])
			return nil
		}),
	}
}

func newNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes TEXT",
		Short: "Replace the free-form notes",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			s.ws.Evaluation().UpdateNotes(s.ctx, args[0])
			return nil
		}),
	}
}

func newFocusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus SECTION|-",
		Short: "Set the active section; - clears it",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			key := args[0]
			if key == "-" {
				key = ""
			} else if _, err := lookupSection(s.ws.Config(), key); err != nil {
				return err
			}
			s.ws.Evaluation().SetActiveSection(s.ctx, key)
			return nil
		}),
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [SECTION]",
		Short: "Clear the answers of one section or of the whole evaluation",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(_ *cobra.Command, s *session, args []string) error {
			if len(args) == 0 {
				s.ws.Evaluation().ResetAll(s.ctx, s.ws.Config().Sections)
				return nil
			}
			if _, err := lookupSection(s.ws.Config(), args[0]); err != nil {
				return err
			}
			s.ws.Evaluation().ResetSection(s.ctx, args[0])
			return nil
		}),
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that rubric weights sum to 1",
		Args:  cobra.NoArgs,
		RunE: withSession(func(_ *cobra.Command, s *session, _ []string) error {
			return s.out.Weights(scoring.ValidateWeights(s.ws.Config().Sections))
		}),
	}
}

func lookupSection(cfg model.EvaluationConfig, key string) (model.Section, error) {
	section, ok := cfg.Sections.Get(key)
	if !ok {
		return model.Section{}, fmt.Errorf("unknown section %q", key)
	}
	return section, nil
}

func lookupCriterion(cfg model.EvaluationConfig, sectionKey, criterionKey string) (model.Criterion, error) {
	section, err := lookupSection(cfg, sectionKey)
	if err != nil {
		return model.Criterion{}, err
	}
	criterion, ok := section.Criteria.Get(criterionKey)
	if !ok {
		return model.Criterion{}, fmt.Errorf("unknown criterion %q in section %q", criterionKey, sectionKey)
	}
	return criterion, nil
}
