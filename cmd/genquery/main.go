package main

import (
	"flag"
	"log"

	"gorm.io/gen"
	"ropeaccess.com/crewtrack/worksession/store"
)

// genquery writes typed gorm/gen query helpers for the work session tables.
func main() {
	out := flag.String("out", "worksession/store/query", "output directory")
	flag.Parse()

	g := gen.NewGenerator(gen.Config{
		OutPath: *out,
		Mode:    gen.WithDefaultQuery | gen.WithQueryInterface,
	})

	g.ApplyBasic(store.Models()...)
	g.Execute()

	log.Printf("[INFO] query code written to %s\n", *out)
}
