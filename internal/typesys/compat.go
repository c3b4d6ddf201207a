package typesys

type kindPair struct{ a, b Kind }

// coercible lists the primitive kind pairs that may be connected even though
// their types differ. The table is symmetric.
var coercible = map[kindPair]bool{}

func init() {
	pairs := []kindPair{
		{KindBool, KindInt32},
		{KindBool, KindUint32},
		{KindInt32, KindUint32},
		{KindInt32, KindFloat32},
		{KindString, KindCharPtr},
		{KindString, KindName},
		{KindString, KindInt32},
		{KindString, KindUint32},
		{KindString, KindFloat32},
	}
	for _, p := range pairs {
		coercible[p] = true
		coercible[kindPair{p.b, p.a}] = true
	}
}

// Compatible reports whether a data-out pin of type out may feed a data-in
// pin of type in. Control pins carry no type and are only compatible with
// each other.
func Compatible(out, in *Type) bool {
	if out == nil || in == nil {
		return out == nil && in == nil
	}
	if out.Kind == KindVoid || in.Kind == KindVoid {
		return false
	}
	if out == in || out.Name == in.Name {
		return true
	}
	if out.IsObject() || in.IsObject() {
		if !out.IsObject() || !in.IsObject() {
			return false
		}
		target := in.ValueType()
		for t := out.ValueType(); t != nil; t = t.Base {
			if t == target || t.Name == target.Name {
				return true
			}
		}
		return false
	}
	return coercible[kindPair{out.Kind, in.Kind}]
}
