package minijava

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func checkProgram(t *testing.T, data string) error {
	goal := parseProgram(t, data)
	table, err := BuildContextTable(goal)
	if err != nil {
		return err
	}
	return TypeCheck(goal, table)
}

func TestTypeCheck_Accepts(t *testing.T) {
	testDatas := []string{
		factorialProgram,
		`
		class M { public static void main(String[] a) {
			int[] x;
			x = new int[3];
			x[0] = (x.length) + 1;
			System.out.println(x[0]);
		} }
		`,
		`
		class M { public static void main(String[] a) {
			A x;
			x = new B();
			System.out.println(x.f());
		} }
		class A { public int f() { return 1; } }
		class B extends A { public int f() { return 2; } }
		`,
		`
		class M { public static void main(String[] a) {
			boolean b;
			b = !false && (1 < 2);
			while (b) b = false;
			System.out.println(0);
		} }
		`,
	}
	for _, testData := range testDatas {
		assert.Nil(t, checkProgram(t, testData))
	}
}

func TestTypeCheck_Rejects(t *testing.T) {
	testDatas := []struct {
		data string
		kind ErrorKind
	}{
		{
			data: `
			class M { public static void main(String[] a) { System.out.println(true); } }
			`,
			kind: TypeMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) { System.out.println(x); } }
			`,
			kind: UnboundIdent,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				int x;
				x = true;
			} }
			`,
			kind: TypeMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				A y;
				y = new A();
				System.out.println(y.g());
			} }
			class A { public int f() { return 1; } }
			`,
			kind: UnboundMethod,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				A y;
				y = new A();
				System.out.println(y.f(1));
			} }
			class A { public int f() { return 1; } }
			`,
			kind: ArgCountMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				A y;
				y = new A();
				System.out.println(y.f(true));
			} }
			class A { public int f(int n) { return n; } }
			`,
			kind: TypeMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) { System.out.println(new Unknown().f()); } }
			`,
			kind: UnknownClass,
		},
		{
			// A parent is not assignable to a child variable.
			data: `
			class M { public static void main(String[] a) {
				B x;
				x = new A();
				System.out.println(0);
			} }
			class A { }
			class B extends A { }
			`,
			kind: TypeMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				if (1) System.out.println(1); else System.out.println(2);
			} }
			`,
			kind: TypeMismatch,
		},
		{
			data: `
			class M { public static void main(String[] a) {
				int x;
				x = 1 && 2;
			} }
			`,
			kind: TypeMismatch,
		},
	}
	for _, testData := range testDatas {
		err := checkProgram(t, testData.data)
		assertCheckErrorKind(t, err, testData.kind)
	}
}

func TestTypeCheck_SubtypeArguments(t *testing.T) {
	// A value of a subclass flows into a parameter of the parent class.
	err := checkProgram(t, `
	class M { public static void main(String[] a) {
		C c;
		c = new C();
		System.out.println(c.use(new B()));
	} }
	class A { }
	class B extends A { }
	class C { public int use(A x) { return 1; } }
	`)
	assert.Nil(t, err)
}

func TestTypeCheck_FieldResolution(t *testing.T) {
	// A method on the child reads a field declared by the parent.
	err := checkProgram(t, `
	class M { public static void main(String[] a) {
		B b;
		b = new B();
		System.out.println(b.get());
	} }
	class A { int x; }
	class B extends A { public int get() { return x; } }
	`)
	assert.Nil(t, err)
}
