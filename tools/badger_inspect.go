// Command badger_inspect dumps the raw contents of the bot database,
// one table row per key. Useful to eyeball tickets, users and token
// records without starting the bots.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Prefix to scan (user:, msg:, tkt:, adm:, ref:, tok:, btn:, topic:), empty for everything")
	limit := flag.Int("limit", 200, "Maximum rows to print")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Size", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			if rows >= *limit {
				break
			}
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, kindOf(key), fmt.Sprintf("%dB", len(v)), preview(v)})
				rows++
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
	color.Green.Printf("%d keys printed\n", rows)
}

// kindOf maps a key prefix to a human label.
func kindOf(key string) string {
	switch {
	case strings.HasPrefix(key, "user:"):
		return "USER"
	case strings.HasPrefix(key, "msg:"):
		return "MESSAGE"
	case strings.HasPrefix(key, "tkt:"):
		return "TICKET"
	case strings.HasPrefix(key, "tktu:"):
		return "TICKET-IDX"
	case strings.HasPrefix(key, "adm:"):
		return "ADMIN"
	case strings.HasPrefix(key, "ref:"), strings.HasPrefix(key, "refi:"):
		return "REFERRAL"
	case strings.HasPrefix(key, "tok:"):
		return "TOKENS"
	case strings.HasPrefix(key, "btn:"):
		return "BUTTON"
	case strings.HasPrefix(key, "topic:"):
		return "TOPIC"
	default:
		return "?"
	}
}

// preview decodes the CBOR value into its integer-keyed fields and
// renders them compactly. Index entries carry no value at all.
func preview(v []byte) string {
	if len(v) == 0 {
		return "-"
	}
	var fields map[int]any
	if err := cbor.Unmarshal(v, &fields); err != nil {
		return fmt.Sprintf("unreadable: %v", err)
	}

	keys := make([]int, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := fmt.Sprintf("%v", fields[k])
		if len(value) > 40 {
			value = value[:40] + "…"
		}
		parts = append(parts, fmt.Sprintf("%d=%s", k, value))
	}
	return strings.Join(parts, " ")
}
