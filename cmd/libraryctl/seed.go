package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/repository"
)

// catalog описывает хранилище, в которое seed добавляет данные.
type catalog interface {
	CreateMember(ctx context.Context, m *model.Member) error
	CreateBook(ctx context.Context, b *model.Book) error
}

var sampleMembers = []model.Member{
	{Username: "alice", Email: "alice@example.com", PhoneNumber: "+15550000001", Address: "12 Elm Street", IsAdmin: true},
	{Username: "bob", Email: "bob@example.com", PhoneNumber: "+15550000002", Address: "7 Oak Avenue"},
	{Username: "carol", Email: "carol@example.com", PhoneNumber: "+15550000003", Address: "33 Pine Road"},
}

var sampleBooks = []model.Book{
	{Title: "The Go Programming Language", Author: "Alan Donovan, Brian Kernighan", ISBN: "9780134190440", PublishedAt: date(2015, time.October, 26), RentFee: 300, LatePenaltyFee: 900},
	{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", PublishedAt: date(1961, time.January, 1), RentFee: 150, LatePenaltyFee: 450},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780547928227", PublishedAt: date(2012, time.September, 18), RentFee: 200, LatePenaltyFee: 600},
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9780141439518", PublishedAt: date(2002, time.December, 31), RentFee: 100, LatePenaltyFee: 300},
	{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565", PublishedAt: date(2004, time.September, 30), RentFee: 120, LatePenaltyFee: 360},
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084", PublishedAt: date(2006, time.May, 23), RentFee: 150, LatePenaltyFee: 450},
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample members and books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURI == "" {
				return errors.New("database URI is not set: use --database-uri or DATABASE_URI")
			}

			repo, err := repository.NewPostgresRepository(opts.databaseURI)
			if err != nil {
				return err
			}
			defer repo.Close()

			return seed(cmd.Context(), repo, cmd.OutOrStdout())
		},
	}
}

// seed добавляет тестовых читателей и книги. Уже существующие записи пропускаются,
// поэтому команду можно запускать повторно.
func seed(ctx context.Context, c catalog, out io.Writer) error {
	var members, books, skipped int

	for _, m := range sampleMembers {
		err := c.CreateMember(ctx, &m)
		switch {
		case errors.Is(err, repository.ErrMemberExists):
			skipped++
		case err != nil:
			return fmt.Errorf("create member %s: %w", m.Username, err)
		default:
			members++
		}
	}

	for _, b := range sampleBooks {
		err := c.CreateBook(ctx, &b)
		switch {
		case errors.Is(err, repository.ErrBookExists):
			skipped++
		case err != nil:
			return fmt.Errorf("create book %s: %w", b.ISBN, err)
		default:
			books++
		}
	}

	fmt.Fprintf(out, "seeded %d members, %d books, skipped %d existing\n", members, books, skipped)
	return nil
}
