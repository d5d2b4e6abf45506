// File: internal/loader/prelude.go
package loader

// preludeJS is the host prelude evaluated into every fresh runtime before the
// widget module itself. It provides the require() shims for the allow-listed
// modules (react, the JSX runtimes, react-dom), inert hook implementations,
// and the HTML string renderer the host uses to realize instances.
//
// Hooks are deliberately inert: useState yields the initial value with a
// no-op setter, effects never run. A widget renders its initial state; the
// host has no reconciler.
const preludeJS = `
'use strict';
var __panelforgeModules = {};
(function () {
  var ELEMENT_TAG = 'panelforge.element';
  var FRAGMENT = 'panelforge.fragment';

  function normalizeChildren(children, out) {
    for (var i = 0; i < children.length; i++) {
      var child = children[i];
      if (child === null || child === undefined || child === false || child === true) continue;
      if (Array.isArray(child)) { normalizeChildren(child, out); continue; }
      out.push(child);
    }
    return out;
  }

  function makeElement(type, props, children) {
    props = props || {};
    return { $$typeof: ELEMENT_TAG, type: type, props: props, children: normalizeChildren(children, []) };
  }

  function createElement(type, props) {
    var rest = Array.prototype.slice.call(arguments, 2);
    var children = rest;
    if (props && props.children !== undefined && rest.length === 0) {
      children = Array.isArray(props.children) ? props.children : [props.children];
    }
    return makeElement(type, props, children);
  }

  function jsx(type, props, key) {
    props = props || {};
    if (key !== undefined) props.key = key;
    var children = [];
    if (props.children !== undefined) {
      children = Array.isArray(props.children) ? props.children : [props.children];
    }
    return makeElement(type, props, children);
  }

  function useState(initial) {
    return [typeof initial === 'function' ? initial() : initial, function () {}];
  }
  function useRef(value) { return { current: value }; }
  function useMemo(factory) { return factory(); }
  function useCallback(fn) { return fn; }
  function noop() {}

  var React = {
    createElement: createElement,
    Fragment: FRAGMENT,
    useState: useState,
    useEffect: noop,
    useLayoutEffect: noop,
    useMemo: useMemo,
    useCallback: useCallback,
    useRef: useRef,
    isValidElement: function (v) { return !!v && v.$$typeof === ELEMENT_TAG; }
  };
  React.default = React;

  __panelforgeModules['react'] = React;
  __panelforgeModules['react/jsx-runtime'] = { jsx: jsx, jsxs: jsx, Fragment: FRAGMENT };
  __panelforgeModules['react/jsx-dev-runtime'] = { jsx: jsx, jsxs: jsx, jsxDEV: jsx, Fragment: FRAGMENT };
  __panelforgeModules['react-dom'] = { render: noop };
  __panelforgeModules['react-dom/client'] = {
    createRoot: function () { return { render: noop, unmount: noop }; }
  };

  var VOID_ELEMENTS = { area:1, base:1, br:1, col:1, embed:1, hr:1, img:1, input:1, link:1, meta:1, source:1, track:1, wbr:1 };

  function escapeHtml(text) {
    return String(text)
      .replace(/&/g, '&amp;')
      .replace(/</g, '&lt;')
      .replace(/>/g, '&gt;')
      .replace(/"/g, '&quot;');
  }

  function styleToCss(style) {
    var parts = [];
    for (var key in style) {
      if (!Object.prototype.hasOwnProperty.call(style, key)) continue;
      var cssKey = key.replace(/[A-Z]/g, function (c) { return '-' + c.toLowerCase(); });
      parts.push(cssKey + ':' + style[key]);
    }
    return parts.join(';');
  }

  function attributeString(props) {
    var out = '';
    for (var name in props) {
      if (!Object.prototype.hasOwnProperty.call(props, name)) continue;
      if (name === 'children' || name === 'key' || name === 'ref') continue;
      var value = props[name];
      if (value === null || value === undefined || value === false) continue;
      if (typeof value === 'function') continue;
      var attr = name === 'className' ? 'class' : name === 'htmlFor' ? 'for' : name;
      if (attr === 'style' && typeof value === 'object') {
        out += ' style="' + escapeHtml(styleToCss(value)) + '"';
        continue;
      }
      if (value === true) { out += ' ' + attr; continue; }
      out += ' ' + attr + '="' + escapeHtml(value) + '"';
    }
    return out;
  }

  function invokeComponent(type, props) {
    if (type.prototype && typeof type.prototype.render === 'function') {
      return new type(props).render();
    }
    return type(props);
  }

  function errorBox(err) {
    var message = err && err.message ? err.message : String(err);
    return '<div class="panelforge-widget-error" role="alert">Widget failed to render: ' + escapeHtml(message) + '</div>';
  }

  function childProps(node) {
    var props = node.props || {};
    if (props.children === undefined && node.children.length > 0) {
      var clone = {};
      for (var k in props) {
        if (Object.prototype.hasOwnProperty.call(props, k)) clone[k] = props[k];
      }
      clone.children = node.children.length === 1 ? node.children[0] : node.children;
      return clone;
    }
    return props;
  }

  function renderNode(node) {
    if (node === null || node === undefined || node === false || node === true) return '';
    if (typeof node === 'string' || typeof node === 'number') return escapeHtml(node);
    if (Array.isArray(node)) {
      var out = '';
      for (var i = 0; i < node.length; i++) out += renderNode(node[i]);
      return out;
    }
    if (!node || node.$$typeof !== ELEMENT_TAG) return escapeHtml(String(node));

    var type = node.type;
    if (type === FRAGMENT) return renderNode(node.children);
    if (typeof type === 'function') {
      if (type.__panelforgeBoundary) {
        try {
          return renderNode(invokeComponent(type, childProps(node)));
        } catch (err) {
          return errorBox(err);
        }
      }
      return renderNode(invokeComponent(type, childProps(node)));
    }

    var tag = String(type);
    var html = '<' + tag + attributeString(node.props);
    if (VOID_ELEMENTS[tag]) return html + '/>';
    return html + '>' + renderNode(node.children) + '</' + tag + '>';
  }

  __panelforgeModules['panelforge/host'] = {
    render: function (component, props) {
      return renderNode(makeElement(component, props || {}, []));
    }
  };
})();

function require(name) {
  var mod = __panelforgeModules[name];
  if (!mod) {
    throw new Error('module "' + name + '" is not provided by the host runtime');
  }
  return mod;
}

function __panelforgeRender(component, props) {
  return __panelforgeModules['panelforge/host'].render(component, props);
}
`
