package tikzcd_test

import (
	"fmt"

	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
	"github.com/matzehuels/quiverkit/pkg/tikzcd"
)

func Example() {
	q := quiver.New()
	res, jobs := tikzcd.Parse(`\begin{tikzcd} A \arrow[r, "f", shorten >=6pt] & B \arrow[x] \end{tikzcd}`, q)
	res.Finalize(q, jobs, geometry.DefaultGrid())

	for _, d := range res.Diagnostics {
		fmt.Println(d)
	}
	fmt.Println(tikzcd.Export(q, tikzcd.ExportOptions{}).Text)
	// Output:
	// warning at 58..59: unknown arrow option `x`
	// \begin{tikzcd}
	// 	{A} & {B}
	// 	\arrow["f", shorten >=6pt, from=1-1, to=1-2]
	// 	\arrow[from=1-2, to=1-2]
	// \end{tikzcd}
}
