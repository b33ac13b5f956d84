package qnode

import (
	"errors"
	"fmt"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func TestBuildCluster(t *testing.T) {
	Convey("Given a cluster of 4 nodes on a unit circle", t, func() {
		cluster, err := BuildCluster(4, 1.0)
		So(err, ShouldBeNil)
		So(cluster.Len(), ShouldEqual, 4)

		nodes := cluster.Nodes()

		Convey("Nodes should be named QN-1 through QN-4", func() {
			for i, node := range nodes {
				So(node.ID, ShouldEqual, fmt.Sprintf("QN-%d", i+1))
			}
		})

		Convey("Nodes should sit on the compass points", func() {
			expected := []Vector{{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0}}
			for i, node := range nodes {
				pos := node.Position()
				So(pos.X, ShouldAlmostEqual, expected[i].X, tolerance)
				So(pos.Y, ShouldAlmostEqual, expected[i].Y, tolerance)
				So(pos.Z, ShouldEqual, 0.0)
			}
		})

		Convey("Each node should link only to its successor", func() {
			for i, node := range nodes {
				So(node.Connections(), ShouldResemble, []string{nodes[(i+1)%4].ID})
			}
			So(nodes[3].Connections(), ShouldResemble, []string{"QN-1"})
		})
	})

	Convey("Given the default cluster of 12 nodes with radius 5", t, func() {
		cluster, err := BuildCluster(12, 5.0)
		So(err, ShouldBeNil)

		Convey("Every node should lie on the circle", func() {
			for _, node := range cluster.Nodes() {
				pos := node.Position()
				So(math.Hypot(pos.X, pos.Y), ShouldAlmostEqual, 5.0, tolerance)
				So(pos.Z, ShouldEqual, 0.0)
			}
		})

		Convey("Following the links should visit every node once", func() {
			seen := map[string]bool{}
			current := cluster.Nodes()[0]

			for step := 0; step < cluster.Len(); step++ {
				So(seen[current.ID], ShouldBeFalse)
				seen[current.ID] = true

				neighbors, err := cluster.Neighbors(current.ID)
				So(err, ShouldBeNil)
				So(len(neighbors), ShouldEqual, 1)
				current = neighbors[0]
			}

			So(len(seen), ShouldEqual, 12)
			So(current.ID, ShouldEqual, "QN-1")
		})

		Convey("Every node should start idle with a single history entry", func() {
			for _, info := range cluster.Infos() {
				So(info.State, ShouldEqual, StateIdle)
				So(info.HistoryLength, ShouldEqual, 1)
			}
		})
	})

	Convey("Given a single node cluster", t, func() {
		cluster, err := BuildCluster(1, 2.0)
		So(err, ShouldBeNil)

		node := cluster.Nodes()[0]
		So(node.Connections(), ShouldBeEmpty)
		So(node.Position(), ShouldResemble, Vector{X: 2.0})
	})

	Convey("Given invalid dimensions", t, func() {
		_, err := BuildCluster(0, 1.0)
		So(errors.Is(err, ErrInvalidSize), ShouldBeTrue)

		_, err = BuildCluster(3, -1.0)
		So(errors.Is(err, ErrInvalidRadius), ShouldBeTrue)

		_, err = BuildCluster(3, math.NaN())
		So(errors.Is(err, ErrInvalidRadius), ShouldBeTrue)

		_, err = BuildCluster(3, math.Inf(1))
		So(errors.Is(err, ErrInvalidRadius), ShouldBeTrue)

		_, err = BuildCluster(3, 1.0, WithClusterChangeProbability(-0.1))
		So(errors.Is(err, ErrInvalidProbability), ShouldBeTrue)
	})
}

func TestNewCluster(t *testing.T) {
	Convey("Given nodes with a duplicate id", t, func() {
		a, _ := NewNode(WithID("QN-1"))
		b, _ := NewNode(WithID("QN-1"))

		cluster, err := NewCluster(a, b)

		So(cluster, ShouldBeNil)
		So(errors.Is(err, ErrDuplicateNode), ShouldBeTrue)
	})

	Convey("Given a nil node", t, func() {
		a, _ := NewNode(WithID("QN-1"))

		cluster, err := NewCluster(a, nil)

		So(cluster, ShouldBeNil)
		So(errors.Is(err, ErrNilNode), ShouldBeTrue)
	})

	Convey("Given nodes linked outside the cluster", t, func() {
		a, _ := NewNode(WithID("a"))
		b, _ := NewNode(WithID("b"))
		So(a.AddConnection("b"), ShouldBeNil)
		So(a.AddConnection("elsewhere"), ShouldBeNil)

		cluster, err := NewCluster(a, b)
		So(err, ShouldBeNil)

		Convey("Neighbors should only resolve known ids", func() {
			neighbors, err := cluster.Neighbors("a")
			So(err, ShouldBeNil)
			So(len(neighbors), ShouldEqual, 1)
			So(neighbors[0], ShouldEqual, b)
		})

		Convey("Looking up an unknown node should fail", func() {
			_, err := cluster.Neighbors("zz")
			So(errors.Is(err, ErrUnknownNode), ShouldBeTrue)

			_, ok := cluster.Get("zz")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestReposition(t *testing.T) {
	Convey("Given a built cluster", t, func() {
		cluster, err := BuildCluster(6, 1.0)
		So(err, ShouldBeNil)

		Convey("Repositioning should move every node onto the new circle", func() {
			So(cluster.Reposition(3.0), ShouldBeNil)
			for _, node := range cluster.Nodes() {
				pos := node.Position()
				So(math.Hypot(pos.X, pos.Y), ShouldAlmostEqual, 3.0, tolerance)
			}
			So(cluster.Nodes()[0].Connections(), ShouldResemble, []string{"QN-2"})
		})

		Convey("A negative radius should be rejected", func() {
			So(errors.Is(cluster.Reposition(-1), ErrInvalidRadius), ShouldBeTrue)
			So(errors.Is(cluster.Reposition(math.NaN()), ErrInvalidRadius), ShouldBeTrue)
			So(math.Hypot(cluster.Nodes()[0].Position().X, cluster.Nodes()[0].Position().Y), ShouldAlmostEqual, 1.0, tolerance)
		})
	})
}
