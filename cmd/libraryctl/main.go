// Package main содержит утилиту обслуживания библиотечного сервиса:
// управление миграциями схемы и заполнение каталога тестовыми данными.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
