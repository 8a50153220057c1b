// Command inspect dumps the message store as a table. Read-only, safe
// to point at a live database directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type messageRow struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	ReceiverID  string    `json:"receiver_id,omitempty"`
	GroupID     string    `json:"group_id,omitempty"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	Language    string    `json:"language,omitempty"`
	SentAt      time.Time `json:"sent_at"`
	Delivered   bool      `json:"delivered"`
	Read        bool      `json:"read"`
}

func main() {
	dbPath := flag.String("db", "./badger", "Path to badger DB")
	// Default scans the primary message records, skipping idx: entries
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Time", "Sender", "To", "Lang", "Status", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Secondary index entries hold no payload worth printing
			if strings.HasPrefix(string(item.Key()), "idx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var row messageRow
				if err := json.Unmarshal(v, &row); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				kind := "DIRECT"
				target := row.ReceiverID
				if row.GroupID != "" {
					kind = "GROUP"
					target = row.GroupID
				}

				content := row.Content
				if len(content) > 48 {
					content = content[:48] + "…"
				}

				table.Append([]string{
					string(item.Key()),
					kind,
					row.SentAt.Format("15:04:05"),
					row.SenderID,
					target,
					row.Language,
					statusLabel(row),
					content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func statusLabel(row messageRow) string {
	switch {
	case row.Read:
		return color.Green.Sprint("READ")
	case row.Delivered:
		return color.Yellow.Sprint("DELIVERED")
	default:
		return color.Red.Sprint("PENDING")
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
