// Package mock provides RunMocker, an exec.Runner for tests that resolves
// invocations against registered rules and runs them in-process.
//
// Rules match either a bare program name or an exact argument vector in which
// Wildcard tokens capture single arguments:
//
//	m := mock.New()
//	m.MustRegister(mock.Name("git"), mock.WithStdout("main"))
//	m.MustRegister(mock.Args("ls", mock.Wildcard, "-l"), mock.WithCallback(
//		func(ctx context.Context, c *exec.Command, args []string) (int, error) {
//			c.Stdout.WriteLine("listing " + args[0])
//			return 0, nil
//		}))
//
//	cmd, err := m.Run(ctx, []string{"ls", "/tmp", "-l"})
//
// Canned rules can also be loaded from YAML with LoadFixtures.
package mock
