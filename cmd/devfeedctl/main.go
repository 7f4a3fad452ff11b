// Команда devfeedctl запускает прогоны источников и очистку вручную, а также синхронизирует файл источников.
//
// Использование:
//
//	devfeedctl run [--source ID | --provider P]
//	devfeedctl sweep
//	devfeedctl sources sync --file sources.yaml
//	devfeedctl sources list
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
