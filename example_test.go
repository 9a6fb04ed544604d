package screenq_test

import (
	"fmt"

	"github.com/bawdo/screenq"
	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/plugins/region"
)

func ExampleNewQuery() {
	tech := screenq.Must(nodes.Sector.Of("Technology"))
	liquid := screenq.Must(nodes.Volume.Compare("gt", 1000000))
	q := screenq.NewQuery(screenq.Must(screenq.And.Of(tech, liquid)))

	data, err := q.MarshalJSON()
	if err != nil {
		panic(err)
	}
	fmt.Println(string(data))
	// Output:
	// {"operands":[{"operands":["sector","Technology"],"operator":"EQ"},{"operands":["dayvolume",1000000],"operator":"GT"}],"operator":"AND"}
}

func ExampleQuery_Use() {
	q := screenq.NewQuery(screenq.Must(nodes.Price.Compare("lt", 5)))
	q.Use(region.New(region.WithRegions("gb")))

	sql, params, err := q.ToSQL(screenq.NewPostgresVisitor())
	if err != nil {
		panic(err)
	}
	fmt.Println(sql)
	fmt.Println(params)
	// Output:
	// "eodprice" < $1 AND "region" = $2
	// [5 gb]
}
