//go:generate go run ./internal/tools/listgen -o internal/shield/lists/prebuilt.txt -include internal/shield/lists/curated.txt -list https://easylist.to/easylist/easylist.txt -list https://adguardteam.github.io/AdGuardSDNSFilter/Filters/filter.txt

package ayen
