package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bulk-sender/internal/config"
	"bulk-sender/internal/template"
)

var formatStatic []string

// formatCmd prints the recipient file layout a template expects
var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Show the recipient file layout a template expects",
	Long: `Print the ';'-separated column layout the recipient file must follow for a
template. Placeholders that name a static variable are not columns.`,
	Example: `  bulksender format --template "Hola {nombre}, soy {minombre}" --static minombre`,
	RunE:    runFormat,
}

func init() {
	formatCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "Message template")
	formatCmd.Flags().StringVar(&runTemplateFile, "template-file", "", "Read the message template from a file")
	formatCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "YAML run profile")
	formatCmd.Flags().StringSliceVar(&formatStatic, "static", nil, "Static variable names")
}

func runFormat(cmd *cobra.Command, args []string) error {
	profile := &config.Profile{}
	if runProfile != "" {
		p, err := config.LoadProfile(runProfile)
		if err != nil {
			return err
		}
		profile = p
	}

	tmpl, err := resolveTemplate(profile)
	if err != nil {
		return err
	}

	static := append([]string(nil), formatStatic...)
	for name := range profile.StaticVars {
		static = append(static, name)
	}

	dynamic := template.Analyze(tmpl, static)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, template.ExpectedFormat(dynamic))

	if err := template.Validate(tmpl, template.KnownNames(static, dynamic)); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	return nil
}
