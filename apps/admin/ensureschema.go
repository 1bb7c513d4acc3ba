package main

import (
	"github.com/trezcool/darasa/storage/database"
)

func (cli *commandLine) ensureSchema() error {
	return database.EnsureSchema(cli.db)
}
