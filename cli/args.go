package cli

import (
	"reflect"

	"github.com/urfave/cli/v2"

	"go.viam.com/bvh/logging"
)

// parseStructFromCtx fills every field of T tagged `flag:"name"` with the value of that flag.
// Untagged struct fields are filled the same way.
func parseStructFromCtx[T any](c *cli.Context) T {
	var args T
	fillFromFlags(c, reflect.ValueOf(&args).Elem())
	return args
}

func fillFromFlags(c *cli.Context, v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := v.Type().Field(i).Tag.Get("flag")
		if name == "" {
			if field.Kind() == reflect.Struct {
				fillFromFlags(c, field)
			}
			continue
		}
		val := c.Value(name)
		if val == nil {
			continue
		}
		fv := reflect.ValueOf(val)
		if fv.Type().ConvertibleTo(field.Type()) {
			field.Set(fv.Convert(field.Type()))
		}
	}
}

// createCommandWithT wraps an action taking parsed arguments as a cli action.
func createCommandWithT[T any](f func(*cli.Context, T) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		return f(c, parseStructFromCtx[T](c))
	}
}

// loggerFromCtx returns a logger writing to the app's error output, at debug level when asked.
func loggerFromCtx(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("bvhbench")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if !c.Bool(flagDebug) {
		logger.SetLevel(logging.INFO)
	}
	return logger
}
