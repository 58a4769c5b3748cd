package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/multimethod/internal/ir"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <defs.cue> [generic]",
		Short: "List generic functions and their methods",
		Long: `List the generic functions in a definitions file: methods with their
specializers, qualifiers, calling conventions, and body behavior names.

With a generic name, only that generic is shown.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runDescribe(rootOpts, args[0], name, cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, path, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	specs, err := LoadDefinitions(path)
	if err != nil {
		_ = formatter.Error("COMPILE", err.Error(), nil)
		return err
	}

	if name != "" {
		spec, err := findGeneric(specs, name)
		if err != nil {
			_ = formatter.Error("NOT_FOUND", err.Error(), nil)
			return err
		}
		specs = []*ir.GenericSpec{spec}
	}

	if formatter.Format == "json" {
		return formatter.Success(specs)
	}

	for _, spec := range specs {
		writeGenericListing(formatter, spec)
	}
	return nil
}

func writeGenericListing(formatter *OutputFormatter, spec *ir.GenericSpec) {
	w := formatter.Writer
	fmt.Fprintf(w, "generic %s\n", spec.Name)
	if spec.Doc != "" {
		fmt.Fprintf(w, "  %s\n", spec.Doc)
	}
	if len(spec.Contexts) > 0 {
		fmt.Fprintf(w, "  contexts: %s\n", strings.Join(spec.Contexts, ", "))
	}
	if len(spec.Precedence) > 0 {
		fmt.Fprintf(w, "  precedence: %s\n", strings.Join(spec.Precedence, ", "))
	}
	for i, m := range spec.Methods {
		fmt.Fprintf(w, "  method[%d]%s %s\n", i, qualifierSuffix(m.Qualifiers), displayBindings(m.Bindings))
		conv := m.Convention
		if conv == "" {
			conv = ir.ConventionPlain
		}
		fmt.Fprintf(w, "    body: %s (%s)\n", m.Body, conv)
	}
	fmt.Fprintln(w)
}

// displayBindings renders a method's dispatch constraints, e.g.
// "(0 (type int), ctx:mode (eql \"loud\"))".
func displayBindings(bindings []ir.BindingSpec) string {
	if len(bindings) == 0 {
		return "()"
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = fmt.Sprintf("%s %s", b.KeyString(), b.Spec.Display())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func qualifierSuffix(quals []string) string {
	if len(quals) == 0 {
		return ""
	}
	return " :" + strings.Join(quals, " :")
}
