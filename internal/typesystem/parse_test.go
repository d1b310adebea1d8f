package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want Type
	}{
		{src: "Int", want: Int},
		{src: "str", want: Text},
		{src: "List[int]", want: ListOf(Int)},
		{src: "dict[str, list[float]]", want: DictOf(Text, ListOf(Float))},
		{src: "Tuple[Int, Text, Bool]", want: TupleOf(Int, Text, Bool)},
		{src: "Point", want: TCon{Name: "Point"}},
		{src: "() -> None", want: TFunc{ReturnType: None}},
		{src: "(Int, Text) -> Bool", want: Func(Bool, Int, Text)},
		{src: "(...) -> None", want: TFunc{ReturnType: None, IsVariadic: true}},
		{src: "(Text, T, ...) -> Text", want: TFunc{Params: []Type{Text, TCon{Name: "T"}}, ReturnType: Text, IsVariadic: true}},
		{src: "(List[T]) -> Optional[T]", want: Func(OptionalOf(TCon{Name: "T"}), ListOf(TCon{Name: "T"}))},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "List", "List[", "Dict[Int]", "(Int -> Int", "(Int) Int", "Int]"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestReplaceTConInstantiates(t *testing.T) {
	sig := MustParse("(List[T], T) -> Dict[K, T]")
	got := Instantiate(sig, []string{"T", "K"}, []Type{TVar{Name: "t1"}, Text})
	want := Func(DictOf(Text, TVar{Name: "t1"}), ListOf(TVar{Name: "t1"}), TVar{Name: "t1"})
	assert.True(t, Equal(want, got), "got %s", got)
}
