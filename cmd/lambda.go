package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lambda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := buildRuntime(cmd)
			if err != nil {
				return err
			}

			logger.Info("lambda starting...")
			lambda.StartWithOptions(rt.Lambda,
				lambda.WithContext(cmd.Context()))
			return nil
		},
	}

	return cmd
}
