package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/resolver"
	"github.com/eclipse-openj9/openj9-sub059/verify"
)

func main() {
	log.SetPrefix("classverify: ")
	log.SetFlags(0)

	app := &cli.App{
		Name:      "classverify",
		Usage:     "verify the bytecode of one or more .class files",
		ArgsUsage: "file.class [file2.class ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "verify-opts",
				Usage: "comma-separated verify:opt,opt2 option list (spec §6.3)",
			},
			&cli.BoolFlag{
				Name:  "disassemble",
				Usage: "print each verified method's instructions before checking it",
			},
			&cli.BoolFlag{
				Name:  "dump-maps",
				Usage: "print the size in bytes of each method's StackMapTable attribute",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("at least one .class file is required", 1)
	}

	cfg := verify.Config{}
	if opts := c.String("verify-opts"); opts != "" {
		parsed, err := verify.ParseOptions("verify:" + opts)
		if err != nil {
			return cli.Exit(err, 1)
		}
		cfg = parsed
	}

	exitCode := 0
	for _, fname := range c.Args().Slice() {
		if err := processFile(fname, cfg, c.Bool("disassemble"), c.Bool("dump-maps")); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", fname, err)
			exitCode = 1
		}
	}
	return cli.Exit("", exitCode)
}

func processFile(fname string, cfg verify.Config, disassemble, dumpMaps bool) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	readOpts := classfile.ReadOptions{}
	if cfg.ExcludedAttribute != "" {
		readOpts.ExcludeAttributes = map[string]bool{cfg.ExcludedAttribute: true}
	}
	class, err := classfile.ReadClass(f, readOpts)
	if err != nil {
		return fmt.Errorf("could not read class: %w", err)
	}

	res := resolver.NewMapResolver()
	if class.SuperclassName != "" {
		if err := res.RegisterClass(class.Name, class.SuperclassName); err != nil {
			fmt.Fprintf(os.Stderr, "%s: warning: %v (superclass hierarchy beyond it will be reported as not yet loaded)\n", fname, err)
		}
	}

	if disassemble {
		for _, m := range class.Methods {
			if len(m.Code) == 0 {
				continue
			}
			d, err := bcmap.Disassemble(m.Code)
			if err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
			fmt.Printf("%s.%s:\n%s", class.Name, m.Name, d.Dump())
		}
	}

	if dumpMaps {
		for _, m := range class.Methods {
			if len(m.StackMapTable) == 0 {
				continue
			}
			fmt.Printf("%s.%s: stack map table, %d bytes\n", class.Name, m.Name, len(m.StackMapTable))
		}
	}

	st := verify.NewState(res, cfg)
	if err := st.Class(class); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", fname)
	return nil
}
